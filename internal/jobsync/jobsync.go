// Package jobsync keeps the trigger engine's job set consistent with enabled
// schedules: full reconstruction on cold start, add/remove on control-plane
// events. It is the only component that mutates the engine's job table.
package jobsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chatlens/chatlens/internal/executor"
	"github.com/chatlens/chatlens/internal/store"
	"github.com/chatlens/chatlens/internal/trigger"
)

// Synchronizer translates schedule lifecycle events into engine mutations.
type Synchronizer struct {
	store    *store.Store
	engine   *trigger.Engine
	executor *executor.Executor
}

// New creates a Synchronizer.
func New(st *store.Store, engine *trigger.Engine, exec *executor.Executor) *Synchronizer {
	return &Synchronizer{store: st, engine: engine, executor: exec}
}

// ColdStart rebuilds the job table from every enabled schedule. The table is
// a disposable cache; this is the authoritative reconstruction path.
func (s *Synchronizer) ColdStart(ctx context.Context) error {
	schedules, err := s.store.EnabledSchedules(ctx)
	if err != nil {
		return fmt.Errorf("jobsync: cold start: %w", err)
	}
	slog.Info("jobsync: cold start", "schedules", len(schedules))
	for _, sched := range schedules {
		s.register(sched)
	}
	return nil
}

// Add fetches the schedule and registers its job. A schedule that no longer
// exists or is disabled is a logged no-op; a later cold start reconciles.
func (s *Synchronizer) Add(ctx context.Context, scheduleID string) error {
	sched, err := s.store.GetSchedule(ctx, scheduleID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("jobsync: add: schedule missing", "schedule_id", scheduleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("jobsync: add %s: %w", scheduleID, err)
	}
	if !sched.Enabled {
		slog.Info("jobsync: add: schedule disabled, skipping", "schedule_id", scheduleID)
		return nil
	}
	s.register(sched)
	return nil
}

// Remove cancels the schedule's job. Absence is not an error: the job may
// have completed or never existed on this process.
func (s *Synchronizer) Remove(ctx context.Context, scheduleID string) error {
	if err := s.engine.Cancel(scheduleID); err != nil {
		if errors.Is(err, trigger.ErrNotFound) {
			slog.Warn("jobsync: remove: no job registered", "schedule_id", scheduleID)
			return nil
		}
		return fmt.Errorf("jobsync: remove %s: %w", scheduleID, err)
	}
	slog.Info("jobsync: job removed", "schedule_id", scheduleID)
	return nil
}

// register builds the trigger and schedules the job keyed by schedule id.
// Scheduling under an existing key replaces the prior job, so duplicate add
// events and edits converge on a single job.
func (s *Synchronizer) register(sched *store.Schedule) {
	tr, err := TriggerFor(sched)
	if err != nil {
		slog.Warn("jobsync: job not registered", "schedule_id", sched.ID, "type", sched.Type, "error", err)
		return
	}
	registered, err := s.engine.Schedule(sched.ID, tr, s.executor.Callback(sched.ID))
	if err != nil {
		slog.Warn("jobsync: schedule job", "schedule_id", sched.ID, "error", err)
		return
	}
	if !registered {
		// Past-due one-shot: already fired, nothing left in the table.
		slog.Info("jobsync: past-due schedule executed immediately", "schedule_id", sched.ID)
		return
	}
	slog.Info("jobsync: job registered", "schedule_id", sched.ID, "trigger", tr.Describe())
}

// TriggerFor derives the engine trigger from the schedule's type. Invalid
// configurations are rejected here as defense in depth; the API tier should
// have validated them at write time.
func TriggerFor(sched *store.Schedule) (trigger.Trigger, error) {
	switch sched.Type {
	case store.TypeInterval:
		return trigger.NewInterval(sched.IntervalHours, sched.IntervalMinutes)
	case store.TypeDailyTime:
		if sched.TimeOfDay == nil {
			return nil, fmt.Errorf("%w: daily schedule without time of day", trigger.ErrInvalidTrigger)
		}
		return trigger.NewDaily(sched.TimeOfDay.Hour, sched.TimeOfDay.Minute)
	case store.TypeCron:
		if sched.CronExpression == "" {
			return nil, fmt.Errorf("%w: empty cron expression", trigger.ErrInvalidTrigger)
		}
		return trigger.NewCron(sched.CronExpression)
	case store.TypeOnce:
		if sched.RunAt == nil {
			return nil, fmt.Errorf("%w: once schedule without run time", trigger.ErrInvalidTrigger)
		}
		return trigger.NewDate(*sched.RunAt)
	default:
		return nil, fmt.Errorf("%w: unknown schedule type %q", trigger.ErrInvalidTrigger, sched.Type)
	}
}
