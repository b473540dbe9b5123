package controlplane

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Consumer is the single long-lived subscriber of the scheduler-owning
// process. Malformed events are dropped and committed; handler failures are
// logged and the event is still committed — the next cold start reconciles.
type Consumer struct {
	source     Source
	handler    Handler
	retryDelay time.Duration
}

// NewConsumer creates the consumer loop over source, dispatching to handler.
func NewConsumer(source Source, handler Handler, retryDelay time.Duration) *Consumer {
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &Consumer{source: source, handler: handler, retryDelay: retryDelay}
}

// Run consumes until the context is cancelled. Broker failures are retried
// forever with a fixed delay: the alternative is silent loss of schedule
// synchronization.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("controlplane: consumer started")
	for {
		msg, err := c.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("controlplane: consumer stopped")
				return ctx.Err()
			}
			slog.Error("controlplane: fetch failed, retrying", "delay", c.retryDelay, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.dispatch(ctx, msg.Value)

		if err := c.source.Commit(ctx, msg); err != nil && ctx.Err() == nil {
			slog.Error("controlplane: commit failed", "error", err)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, value []byte) {
	var ev Event
	if err := json.Unmarshal(value, &ev); err != nil {
		slog.Warn("controlplane: malformed event dropped", "error", err, "payload", string(value))
		return
	}
	if ev.Action == "" || ev.ScheduleID == "" {
		slog.Warn("controlplane: incomplete event dropped", "payload", string(value))
		return
	}

	slog.Debug("controlplane: event received", "action", ev.Action, "schedule_id", ev.ScheduleID)

	var err error
	switch ev.Action {
	case ActionAdd:
		err = c.handler.Add(ctx, ev.ScheduleID)
	case ActionDelete:
		err = c.handler.Remove(ctx, ev.ScheduleID)
	default:
		slog.Warn("controlplane: unknown action dropped", "action", ev.Action, "schedule_id", ev.ScheduleID)
		return
	}
	if err != nil {
		slog.Error("controlplane: handle event", "action", ev.Action, "schedule_id", ev.ScheduleID, "error", err)
	}
}
