// Package controlplane carries schedule lifecycle events between the API
// tier and the scheduler worker over a durable queue. Delivery is
// at-least-once: events are acknowledged only after they are handled, and
// every add is a safe replace.
package controlplane

import "context"

// Event actions.
const (
	ActionAdd    = "add"
	ActionDelete = "delete"
)

// Event is the wire format: exactly two keys, no versioning.
type Event struct {
	Action     string `json:"action"`
	ScheduleID string `json:"schedule_id"`
}

// Message is one raw queue message plus the broker's commit token.
type Message struct {
	Value []byte
	raw   any
}

// Source is the broker side of the consumer. Fetch blocks until a message is
// available; Commit acknowledges one previously fetched message.
type Source interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

// Handler reacts to schedule lifecycle events (the job synchronizer).
type Handler interface {
	Add(ctx context.Context, scheduleID string) error
	Remove(ctx context.Context, scheduleID string) error
}
