// Package executor runs the two-phase analyze/deliver pipeline. The analysis
// phase fires from the trigger engine at a schedule's due time; the delivery
// phase is a secondary one-shot job keyed by schedule and result.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chatlens/chatlens/internal/deliver"
	"github.com/chatlens/chatlens/internal/metrics"
	"github.com/chatlens/chatlens/internal/store"
	"github.com/chatlens/chatlens/internal/summarize"
	"github.com/chatlens/chatlens/internal/trigger"
)

// RunStatus classifies the outcome of one analysis run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunEmpty     RunStatus = "empty"
	RunFailed    RunStatus = "failed"
)

// RunResult is the structured outcome of one run. The trigger callback
// inspects it instead of letting errors escape into the engine.
type RunResult struct {
	Status     RunStatus
	ChatID     string
	AnalysisID string
	Err        error
}

// Executor computes analysis windows, invokes the summarizer, persists
// results and schedules their delivery.
type Executor struct {
	store      *store.Store
	engine     *trigger.Engine
	summarizer summarize.Summarizer
	sender     deliver.Sender
	metrics    metrics.Recorder
	now        func() time.Time
}

// New creates an Executor.
func New(st *store.Store, engine *trigger.Engine, sum summarize.Summarizer, snd deliver.Sender, rec metrics.Recorder) *Executor {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Executor{
		store:      st,
		engine:     engine,
		summarizer: sum,
		sender:     snd,
		metrics:    rec,
		now:        time.Now,
	}
}

// Callback wraps Run for the trigger engine: the job payload is the schedule
// id alone, re-fetched at fire time, and no failure propagates upward.
func (x *Executor) Callback(scheduleID string) trigger.Callback {
	return func(ctx context.Context) {
		res := x.Run(ctx, scheduleID)
		switch res.Status {
		case RunFailed:
			slog.Error("executor: run failed", "schedule_id", scheduleID, "chat_id", res.ChatID, "error", res.Err)
			x.metrics.RunFailed(res.ChatID, scheduleID)
		case RunEmpty:
			slog.Info("executor: run produced no result", "schedule_id", scheduleID, "chat_id", res.ChatID)
			x.metrics.RunSucceeded(res.ChatID, scheduleID)
		default:
			slog.Info("executor: run completed", "schedule_id", scheduleID, "chat_id", res.ChatID, "analysis_id", res.AnalysisID)
			x.metrics.RunSucceeded(res.ChatID, scheduleID)
		}
	}
}

// Run executes one firing of the schedule. A once-type schedule is disabled
// afterwards whatever the outcome; it does not get a second chance.
func (x *Executor) Run(ctx context.Context, scheduleID string) RunResult {
	sched, err := x.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return RunResult{Status: RunFailed, Err: fmt.Errorf("fetch schedule: %w", err)}
	}
	defer func() {
		if sched.Type == store.TypeOnce {
			if err := x.store.DisableSchedule(ctx, sched.ID); err != nil {
				slog.Error("executor: disable once schedule", "schedule_id", sched.ID, "error", err)
			}
		}
	}()

	if sched.Strategy == store.StrategyNotification {
		return x.runNotification(ctx, sched)
	}
	return x.runAnalysis(ctx, sched)
}

func (x *Executor) runAnalysis(ctx context.Context, sched *store.Schedule) RunResult {
	if sched.Chat == nil {
		return RunResult{Status: RunFailed, Err: fmt.Errorf("analysis schedule %s has no source chat", sched.ID)}
	}
	if sched.Prompt == nil {
		return RunResult{Status: RunFailed, ChatID: sched.Chat.ID, Err: fmt.Errorf("analysis schedule %s has no prompt", sched.ID)}
	}
	chatID := sched.Chat.ID
	now := x.now().UTC()

	dateFrom, ok, err := x.windowStart(ctx, sched)
	if err != nil {
		return RunResult{Status: RunFailed, ChatID: chatID, Err: err}
	}
	if !ok {
		// The chat has no stored messages at all.
		if err := x.store.UpdateScheduleRun(ctx, sched.ID, now); err != nil {
			return RunResult{Status: RunFailed, ChatID: chatID, Err: err}
		}
		return RunResult{Status: RunEmpty, ChatID: chatID}
	}

	msgs, err := x.store.MessagesBetween(ctx, chatID, dateFrom, now)
	if err != nil {
		return RunResult{Status: RunFailed, ChatID: chatID, Err: fmt.Errorf("fetch messages: %w", err)}
	}
	if len(msgs) == 0 {
		if err := x.store.UpdateScheduleRun(ctx, sched.ID, now); err != nil {
			return RunResult{Status: RunFailed, ChatID: chatID, Err: err}
		}
		return RunResult{Status: RunEmpty, ChatID: chatID}
	}

	slog.Info("executor: analyzing window", "schedule_id", sched.ID, "chat_id", chatID,
		"date_from", dateFrom, "date_to", now, "messages", len(msgs))

	text, usage, err := x.summarizer.Summarize(ctx, sched.Prompt.Text, msgs)
	if err != nil {
		return RunResult{Status: RunFailed, ChatID: chatID, Err: fmt.Errorf("summarize: %w", err)}
	}

	result := &store.AnalysisResult{
		ScheduleID:   sched.ID,
		PromptID:     sched.Prompt.ID,
		ChatID:       chatID,
		CompanyID:    sched.CompanyID,
		ResultText:   text,
		TokensInput:  usage.InputTokens,
		TokensOutput: usage.OutputTokens,
		DateFrom:     dateFrom,
		DateTo:       now,
	}
	if err := x.store.CreateAnalysisResult(ctx, result); err != nil {
		return RunResult{Status: RunFailed, ChatID: chatID, Err: err}
	}

	x.ScheduleDelivery(sched, result.ID, x.sendAt(sched, now))

	if err := x.store.UpdateScheduleRun(ctx, sched.ID, now); err != nil {
		return RunResult{Status: RunFailed, ChatID: chatID, Err: err}
	}
	return RunResult{Status: RunCompleted, ChatID: chatID, AnalysisID: result.ID}
}

// runNotification delivers the schedule's static text through the same
// send-strategy path, without touching the summarizer.
func (x *Executor) runNotification(ctx context.Context, sched *store.Schedule) RunResult {
	now := x.now().UTC()
	key := fmt.Sprintf("%s_%s", sched.ID, uuid.NewString())
	x.scheduleTextDelivery(sched.ID, key, sched.NotificationText, x.sendAt(sched, now))

	var chatID string
	if sched.Chat != nil {
		chatID = sched.Chat.ID
	}
	if err := x.store.UpdateScheduleRun(ctx, sched.ID, now); err != nil {
		return RunResult{Status: RunFailed, ChatID: chatID, Err: err}
	}
	return RunResult{Status: RunCompleted, ChatID: chatID}
}

// windowStart resolves date_from: last_run_at when set, otherwise the chat's
// oldest message. ok is false when the chat holds no messages.
func (x *Executor) windowStart(ctx context.Context, sched *store.Schedule) (time.Time, bool, error) {
	if sched.LastRunAt != nil {
		return sched.LastRunAt.UTC(), true, nil
	}
	oldest, ok, err := x.store.OldestMessageTime(ctx, sched.Chat.ID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest message: %w", err)
	}
	return oldest, ok, nil
}

// sendAt decides the delivery moment from the schedule's send strategy. A
// moment at or before now makes the delivery job fire immediately.
func (x *Executor) sendAt(sched *store.Schedule, now time.Time) time.Time {
	switch sched.SendStrategy {
	case store.SendFixed:
		if sched.TimeToSend == nil {
			slog.Warn("executor: fixed send strategy without time_to_send, delivering now", "schedule_id", sched.ID)
			return now
		}
		at := sched.TimeToSend.On(now)
		if !at.After(now) {
			return now
		}
		return at
	case store.SendRelative:
		return now.Add(time.Duration(sched.SendAfterMinutes) * time.Minute)
	default:
		slog.Warn("executor: unknown send strategy, delivering now", "schedule_id", sched.ID, "strategy", sched.SendStrategy)
		return now
	}
}
