package controlplane

import (
	"context"
	"sync/atomic"
)

// ChannelSource is an in-process Source backed by a Go channel, for tests.
type ChannelSource struct {
	ch        chan Message
	committed atomic.Int64
}

// NewChannelSource creates an in-process source.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{ch: make(chan Message, 100)}
}

func (s *ChannelSource) Fetch(ctx context.Context) (Message, error) {
	select {
	case msg := <-s.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (s *ChannelSource) Commit(ctx context.Context, msg Message) error {
	s.committed.Add(1)
	return nil
}

func (s *ChannelSource) Close() error { return nil }

// Send pushes a raw payload into the source.
func (s *ChannelSource) Send(value []byte) {
	s.ch <- Message{Value: value}
}

// Committed reports how many messages were acknowledged.
func (s *ChannelSource) Committed() int64 {
	return s.committed.Load()
}
