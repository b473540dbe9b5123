package jobsync

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/executor"
	"github.com/chatlens/chatlens/internal/store"
	"github.com/chatlens/chatlens/internal/summarize"
	"github.com/chatlens/chatlens/internal/trigger"
)

type stubSummarizer struct{}

func (stubSummarizer) Summarize(ctx context.Context, prompt string, msgs []store.Message) (string, summarize.Usage, error) {
	return "summary", summarize.Usage{}, nil
}

type stubSender struct{}

func (stubSender) Send(ctx context.Context, botToken, chatID, text string) error { return nil }

type syncEnv struct {
	store  *store.Store
	engine *trigger.Engine
	sync   *Synchronizer
}

func newSyncEnv(t *testing.T) *syncEnv {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	engine := trigger.NewEngine()
	t.Cleanup(engine.Stop)

	exec := executor.New(st, engine, stubSummarizer{}, stubSender{}, nil)
	return &syncEnv{store: st, engine: engine, sync: New(st, engine, exec)}
}

func (env *syncEnv) seedSchedule(t *testing.T, mutate func(*store.Schedule)) *store.Schedule {
	t.Helper()
	ctx := context.Background()

	chat := &store.Chat{ID: "100", Name: "chat"}
	if err := env.store.CreateChat(ctx, chat); err != nil && !strings.Contains(err.Error(), "UNIQUE") {
		t.Fatal(err)
	}
	prompt := &store.Prompt{Name: "p", Text: "Summarize."}
	if err := env.store.CreatePrompt(ctx, prompt); err != nil {
		t.Fatal(err)
	}
	bot := &store.Bot{Token: "1:a", Username: "bot"}
	if err := env.store.CreateBot(ctx, bot); err != nil {
		t.Fatal(err)
	}

	sched := &store.Schedule{
		CompanyID:     "co",
		Strategy:      store.StrategyAnalysis,
		Type:          store.TypeInterval,
		IntervalHours: 1,
		Enabled:       true,
		SendStrategy:  store.SendRelative,
		Chat:          chat,
		Prompt:        prompt,
		Bot:           bot,
	}
	if mutate != nil {
		mutate(sched)
	}
	if err := env.store.CreateSchedule(ctx, sched); err != nil {
		t.Fatal(err)
	}
	return sched
}

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

func TestColdStartRegistersOnlyEnabled(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	enabled := env.seedSchedule(t, nil)
	env.seedSchedule(t, func(sc *store.Schedule) { sc.Enabled = false })

	if err := env.sync.ColdStart(ctx); err != nil {
		t.Fatal(err)
	}

	jobs := env.engine.Jobs()
	if len(jobs) != 1 || jobs[0].Key != enabled.ID {
		t.Errorf("jobs = %+v, want only %s", jobs, enabled.ID)
	}
}

func TestColdStartSkipsInvalidSchedule(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	// Interval schedule with no interval at all cannot produce a trigger.
	env.seedSchedule(t, func(sc *store.Schedule) { sc.IntervalHours = 0 })
	good := env.seedSchedule(t, nil)

	if err := env.sync.ColdStart(ctx); err != nil {
		t.Fatal(err)
	}

	jobs := env.engine.Jobs()
	if len(jobs) != 1 || jobs[0].Key != good.ID {
		t.Errorf("jobs = %+v, want only %s", jobs, good.ID)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	sched := env.seedSchedule(t, nil)

	if err := env.sync.Add(ctx, sched.ID); err != nil {
		t.Fatal(err)
	}
	if err := env.sync.Add(ctx, sched.ID); err != nil {
		t.Fatal(err)
	}
	if jobs := env.engine.Jobs(); len(jobs) != 1 {
		t.Errorf("duplicate add left %d jobs, want 1", len(jobs))
	}
}

func TestAddMissingAndDisabledAreNoOps(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()

	if err := env.sync.Add(ctx, "never-existed"); err != nil {
		t.Errorf("add missing: %v", err)
	}

	disabled := env.seedSchedule(t, func(sc *store.Schedule) { sc.Enabled = false })
	if err := env.sync.Add(ctx, disabled.ID); err != nil {
		t.Errorf("add disabled: %v", err)
	}

	if jobs := env.engine.Jobs(); len(jobs) != 0 {
		t.Errorf("no-op adds registered %d jobs", len(jobs))
	}
}

func TestRemoveMissingJobIsNoOp(t *testing.T) {
	env := newSyncEnv(t)
	if err := env.sync.Remove(context.Background(), "never-registered"); err != nil {
		t.Errorf("remove missing: %v", err)
	}
}

func TestEditReplacesJobInPlace(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	sched := env.seedSchedule(t, nil)

	if err := env.sync.Add(ctx, sched.ID); err != nil {
		t.Fatal(err)
	}

	// The API tier rewrites the trigger, then publishes a plain add event;
	// re-adding under the same key must swap the job, not stack a second one.
	sched.IntervalHours = 2
	if err := env.store.UpdateScheduleTrigger(ctx, sched); err != nil {
		t.Fatal(err)
	}
	if err := env.sync.Add(ctx, sched.ID); err != nil {
		t.Fatal(err)
	}

	jobs := env.engine.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("after edit: %d jobs, want 1", len(jobs))
	}
	if desc := jobs[0].Trigger.Describe(); !strings.Contains(desc, "2h") {
		t.Errorf("job trigger = %q, want the edited 2h interval", desc)
	}
}

func TestColdStartRunsPastDueOnceImmediately(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()
	runAt := time.Now().UTC().Add(-time.Minute)
	sched := env.seedSchedule(t, func(sc *store.Schedule) {
		sc.Type = store.TypeOnce
		sc.RunAt = &runAt
	})

	if err := env.sync.ColdStart(ctx); err != nil {
		t.Fatal(err)
	}

	if jobs := env.engine.Jobs(); len(jobs) != 0 {
		t.Errorf("past-due once schedule left %d jobs registered", len(jobs))
	}
	// The immediate run lands asynchronously: it advances last_run_at and
	// disables the schedule.
	waitFor(t, func() bool {
		got, err := env.store.GetSchedule(ctx, sched.ID)
		return err == nil && got.LastRunAt != nil && !got.Enabled
	})
}

func TestTriggerFor(t *testing.T) {
	at := time.Now().Add(time.Hour).UTC()
	cases := []struct {
		name     string
		mutate   func(*store.Schedule)
		wantErr  bool
		describe string
	}{
		{"interval", func(sc *store.Schedule) {}, false, "interval"},
		{"interval without duration", func(sc *store.Schedule) { sc.IntervalHours = 0 }, true, ""},
		{"daily", func(sc *store.Schedule) {
			sc.Type = store.TypeDailyTime
			sc.TimeOfDay = &store.TimeOfDay{Hour: 9, Minute: 30}
		}, false, "cron"},
		{"daily without time", func(sc *store.Schedule) { sc.Type = store.TypeDailyTime }, true, ""},
		{"cron", func(sc *store.Schedule) {
			sc.Type = store.TypeCron
			sc.CronExpression = "0 5 * * *"
		}, false, "cron"},
		{"cron without expression", func(sc *store.Schedule) { sc.Type = store.TypeCron }, true, ""},
		{"once", func(sc *store.Schedule) {
			sc.Type = store.TypeOnce
			sc.RunAt = &at
		}, false, "once"},
		{"once without run time", func(sc *store.Schedule) { sc.Type = store.TypeOnce }, true, ""},
		{"unknown type", func(sc *store.Schedule) { sc.Type = "weekly" }, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sched := &store.Schedule{Type: store.TypeInterval, IntervalHours: 1}
			tc.mutate(sched)
			tr, err := TriggerFor(sched)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(tr.Describe(), tc.describe) {
				t.Errorf("Describe = %q, want %s trigger", tr.Describe(), tc.describe)
			}
		})
	}
}
