package trigger

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Callback is the work a job performs at its due time. Callbacks must handle
// their own failures; the engine does not inspect their outcome.
type Callback func(ctx context.Context)

// JobInfo describes one registered job.
type JobInfo struct {
	Key     string
	Trigger Trigger
	NextRun time.Time
}

type job struct {
	key     string
	trigger Trigger
	fn      Callback
	next    time.Time
	cancel  context.CancelFunc
}

// Engine is the time-ordered job table. It is exclusively mutated by the job
// synchronizer; callbacks fire on per-job goroutines.
type Engine struct {
	mu     sync.Mutex
	jobs   map[string]*job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewEngine creates an empty engine. Stop releases all timers.
func NewEngine() *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}
}

// Schedule registers fn under key, replacing any existing job with the same
// key atomically. When the trigger is already exhausted (a past-due one-shot),
// the callback is fired once on its own goroutine instead of being registered
// and Schedule reports registered=false.
func (e *Engine) Schedule(key string, tr Trigger, fn Callback) (registered bool, err error) {
	if tr == nil {
		return false, ErrInvalidTrigger
	}
	first := tr.Next(e.now())
	if first.IsZero() {
		slog.Warn("trigger: past-due one-shot, firing immediately", "key", key)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			fn(e.ctx)
		}()
		return false, nil
	}

	jobCtx, jobCancel := context.WithCancel(e.ctx)
	j := &job{key: key, trigger: tr, fn: fn, next: first, cancel: jobCancel}

	e.mu.Lock()
	if prev, ok := e.jobs[key]; ok {
		prev.cancel()
		slog.Debug("trigger: job replaced", "key", key)
	}
	e.jobs[key] = j
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(jobCtx, j)

	slog.Info("trigger: job registered", "key", key, "trigger", tr.Describe(), "next", first)
	return true, nil
}

// Cancel removes the job for key. ErrNotFound when no such job exists.
func (e *Engine) Cancel(key string) error {
	e.mu.Lock()
	j, ok := e.jobs[key]
	if ok {
		delete(e.jobs, key)
	}
	e.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	j.cancel()
	slog.Info("trigger: job cancelled", "key", key)
	return nil
}

// Jobs returns a snapshot of the registered jobs, ordered by key.
func (e *Engine) Jobs() []JobInfo {
	e.mu.Lock()
	out := make([]JobInfo, 0, len(e.jobs))
	for _, j := range e.jobs {
		out = append(out, JobInfo{Key: j.key, Trigger: j.trigger, NextRun: j.next})
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, k int) bool { return out[i].Key < out[k].Key })
	return out
}

// Stop cancels every job and waits for in-flight callbacks to return.
func (e *Engine) Stop() {
	e.cancel()
	e.mu.Lock()
	e.jobs = make(map[string]*job)
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, j *job) {
	defer e.wg.Done()
	for {
		timer := time.NewTimer(time.Until(j.next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		j.fn(ctx)

		next := j.trigger.Next(e.now())
		if next.IsZero() {
			e.removeCompleted(j)
			return
		}
		e.mu.Lock()
		j.next = next
		e.mu.Unlock()
	}
}

// removeCompleted drops a one-shot job after its single firing, unless it has
// already been replaced under the same key.
func (e *Engine) removeCompleted(j *job) {
	e.mu.Lock()
	if cur, ok := e.jobs[j.key]; ok && cur == j {
		delete(e.jobs, j.key)
	}
	e.mu.Unlock()
	slog.Debug("trigger: one-shot job completed", "key", j.key)
}
