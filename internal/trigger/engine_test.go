package trigger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// tickTrigger fires every period; small enough to observe in tests.
type tickTrigger struct {
	period time.Duration
}

func (tr tickTrigger) Next(t time.Time) time.Time { return t.Add(tr.period) }
func (tr tickTrigger) Describe() string           { return "tick" }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEngineScheduleAndFire(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	var fired atomic.Int32
	registered, err := e.Schedule("job-1", tickTrigger{period: 20 * time.Millisecond}, func(ctx context.Context) {
		fired.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if !registered {
		t.Fatal("expected job to be registered")
	}

	waitFor(t, func() bool { return fired.Load() >= 2 })

	jobs := e.Jobs()
	if len(jobs) != 1 || jobs[0].Key != "job-1" {
		t.Errorf("Jobs = %+v, want one entry for job-1", jobs)
	}
}

func TestEngineReplaceSameKey(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	var first, second atomic.Int32
	if _, err := e.Schedule("job", tickTrigger{period: 15 * time.Millisecond}, func(ctx context.Context) {
		first.Add(1)
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Schedule("job", tickTrigger{period: 15 * time.Millisecond}, func(ctx context.Context) {
		second.Add(1)
	}); err != nil {
		t.Fatal(err)
	}

	if jobs := e.Jobs(); len(jobs) != 1 {
		t.Fatalf("after replace: %d jobs, want 1", len(jobs))
	}

	waitFor(t, func() bool { return second.Load() >= 2 })
	// The replaced job was cancelled before its timer could stack up firings.
	if got := first.Load(); got > 1 {
		t.Errorf("replaced job fired %d times after replacement", got)
	}
}

func TestEngineCancel(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	if err := e.Cancel("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancel unknown: got %v, want ErrNotFound", err)
	}

	if _, err := e.Schedule("job", tickTrigger{period: time.Hour}, func(ctx context.Context) {}); err != nil {
		t.Fatal(err)
	}
	if err := e.Cancel("job"); err != nil {
		t.Errorf("cancel registered: %v", err)
	}
	if jobs := e.Jobs(); len(jobs) != 0 {
		t.Errorf("after cancel: %d jobs, want 0", len(jobs))
	}
}

func TestEnginePastDueOneShotFiresImmediately(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	tr, err := NewDate(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	registered, err := e.Schedule("late", tr, func(ctx context.Context) {
		fired.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if registered {
		t.Error("past-due one-shot must not be registered")
	}

	waitFor(t, func() bool { return fired.Load() == 1 })
	if jobs := e.Jobs(); len(jobs) != 0 {
		t.Errorf("past-due one-shot left %d jobs in the table", len(jobs))
	}
}

func TestEngineOneShotRemovedAfterFiring(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	tr, err := NewDate(time.Now().Add(30 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	registered, err := e.Schedule("soon", tr, func(ctx context.Context) {
		fired.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	if !registered {
		t.Fatal("future one-shot should be registered")
	}

	waitFor(t, func() bool { return fired.Load() == 1 })
	waitFor(t, func() bool { return len(e.Jobs()) == 0 })

	// No second firing.
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("one-shot fired %d times, want 1", got)
	}
}

func TestEngineStopCancelsJobs(t *testing.T) {
	e := NewEngine()

	var fired atomic.Int32
	if _, err := e.Schedule("job", tickTrigger{period: 10 * time.Millisecond}, func(ctx context.Context) {
		fired.Add(1)
	}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return fired.Load() >= 1 })

	e.Stop()
	count := fired.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != count {
		t.Errorf("job fired after Stop: %d -> %d", count, got)
	}
}
