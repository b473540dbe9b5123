package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/chatlens/chatlens/internal/config"
)

// KafkaSource consumes the schedule-events topic through a consumer group,
// committing offsets explicitly after each event is handled.
type KafkaSource struct {
	reader *kafka.Reader
}

// NewKafkaSource creates a source for the configured topic.
func NewKafkaSource(cfg config.BrokerConfig) *KafkaSource {
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  strings.Split(cfg.Brokers, ","),
			Topic:    cfg.Topic,
			GroupID:  cfg.ConsumerGroup,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
	}
}

func (s *KafkaSource) Fetch(ctx context.Context) (Message, error) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{Value: m.Value, raw: m}, nil
}

func (s *KafkaSource) Commit(ctx context.Context, msg Message) error {
	m, ok := msg.raw.(kafka.Message)
	if !ok {
		return fmt.Errorf("controlplane: commit: not a kafka message")
	}
	return s.reader.CommitMessages(ctx, m)
}

func (s *KafkaSource) Close() error { return s.reader.Close() }

// Publisher emits schedule lifecycle events. The API tier calls it
// synchronously inside the request that mutates the schedule store.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the configured topic.
func NewPublisher(cfg config.BrokerConfig) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// NotifyScheduleAdded publishes an add (create, enable, or edit — add is a
// replace on the consumer side, so edits need no prior delete).
func (p *Publisher) NotifyScheduleAdded(ctx context.Context, scheduleID string) error {
	return p.publish(ctx, Event{Action: ActionAdd, ScheduleID: scheduleID})
}

// NotifyScheduleRemoved publishes a delete (disable or removal).
func (p *Publisher) NotifyScheduleRemoved(ctx context.Context, scheduleID string) error {
	return p.publish(ctx, Event{Action: ActionDelete, ScheduleID: scheduleID})
}

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("controlplane: marshal event: %w", err)
	}
	// Keyed by schedule id so events for one schedule stay ordered.
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ScheduleID),
		Value: body,
	})
	if err != nil {
		return fmt.Errorf("controlplane: publish %s %s: %w", ev.Action, ev.ScheduleID, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
