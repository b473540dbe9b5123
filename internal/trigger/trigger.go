// Package trigger implements the in-process job table that turns schedule
// definitions into firing timers. Jobs are keyed, replace-on-schedule, and
// hold no state across restarts.
package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrInvalidTrigger reports a timing rule that can never fire.
	ErrInvalidTrigger = errors.New("trigger: invalid trigger")
	// ErrNotFound reports a cancel for an unknown job key.
	ErrNotFound = errors.New("trigger: job not found")
)

// Trigger is a timing rule. Next returns the next fire time strictly after t,
// or the zero time when the trigger has no further firings.
type Trigger interface {
	Next(t time.Time) time.Time
	Describe() string
}

// IntervalTrigger fires every fixed duration starting from registration.
type IntervalTrigger struct {
	Every time.Duration
}

// NewInterval builds an interval trigger from hour/minute fields. A zero
// total interval is rejected.
func NewInterval(hours, minutes int) (IntervalTrigger, error) {
	every := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if every <= 0 {
		return IntervalTrigger{}, fmt.Errorf("%w: interval is zero", ErrInvalidTrigger)
	}
	return IntervalTrigger{Every: every}, nil
}

func (tr IntervalTrigger) Next(t time.Time) time.Time { return t.Add(tr.Every) }

func (tr IntervalTrigger) Describe() string {
	return fmt.Sprintf("interval every %s", tr.Every)
}

// CronTrigger fires according to a standard 5-field crontab expression.
type CronTrigger struct {
	Expr     string
	schedule cron.Schedule
}

// NewCron parses a 5-field cron expression.
func NewCron(expr string) (CronTrigger, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return CronTrigger{}, fmt.Errorf("%w: cron %q: %v", ErrInvalidTrigger, expr, err)
	}
	return CronTrigger{Expr: expr, schedule: schedule}, nil
}

func (tr CronTrigger) Next(t time.Time) time.Time { return tr.schedule.Next(t) }

func (tr CronTrigger) Describe() string {
	return fmt.Sprintf("cron %q", tr.Expr)
}

// NewDaily fires every day at a wall-clock time. Implemented as a cron rule.
func NewDaily(hour, minute int) (CronTrigger, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return CronTrigger{}, fmt.Errorf("%w: daily time %02d:%02d", ErrInvalidTrigger, hour, minute)
	}
	return NewCron(fmt.Sprintf("%d %d * * *", minute, hour))
}

// DateTrigger fires exactly once at an absolute timestamp.
type DateTrigger struct {
	At time.Time
}

// NewDate builds a one-shot trigger. A zero timestamp is rejected; a
// past timestamp is accepted — the engine fires it immediately.
func NewDate(at time.Time) (DateTrigger, error) {
	if at.IsZero() {
		return DateTrigger{}, fmt.Errorf("%w: run time not set", ErrInvalidTrigger)
	}
	return DateTrigger{At: at}, nil
}

func (tr DateTrigger) Next(t time.Time) time.Time {
	if tr.At.After(t) {
		return tr.At
	}
	return time.Time{}
}

func (tr DateTrigger) Describe() string {
	return fmt.Sprintf("once at %s", tr.At.Format(time.RFC3339))
}
