package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatlens/chatlens/internal/store"
	"github.com/chatlens/chatlens/internal/trigger"
)

// missingResultText is delivered when the analysis row vanished between the
// run and its delivery, so a scheduled delivery never fails silently.
const missingResultText = "Analysis result not found."

// ScheduleDelivery registers a one-shot delivery job for a completed result.
// The key embeds the analysis id, so delivery never collides with the
// schedule's own recurring job. Returns the job key.
func (x *Executor) ScheduleDelivery(sched *store.Schedule, analysisID string, at time.Time) string {
	key := fmt.Sprintf("%s_%s", sched.ID, analysisID)
	scheduleID := sched.ID
	tr, err := trigger.NewDate(at)
	if err != nil {
		slog.Error("executor: delivery trigger", "key", key, "error", err)
		return key
	}
	_, err = x.engine.Schedule(key, tr, func(ctx context.Context) {
		x.deliverResult(ctx, scheduleID, analysisID)
	})
	if err != nil {
		slog.Error("executor: schedule delivery", "key", key, "error", err)
		return key
	}
	slog.Info("executor: delivery scheduled", "key", key, "at", at)
	return key
}

// scheduleTextDelivery registers a one-shot delivery of static text
// (notification strategy).
func (x *Executor) scheduleTextDelivery(scheduleID, key, text string, at time.Time) {
	tr, err := trigger.NewDate(at)
	if err != nil {
		slog.Error("executor: notification trigger", "key", key, "error", err)
		return
	}
	_, err = x.engine.Schedule(key, tr, func(ctx context.Context) {
		sched, ferr := x.store.GetSchedule(ctx, scheduleID)
		if ferr != nil {
			slog.Error("executor: deliver notification: fetch schedule", "schedule_id", scheduleID, "error", ferr)
			return
		}
		x.fanOut(ctx, sched, text)
	})
	if err != nil {
		slog.Error("executor: schedule notification", "key", key, "error", err)
	}
}

// deliverResult re-fetches everything at fire time: the schedule may have
// been edited and the result row may even be gone.
func (x *Executor) deliverResult(ctx context.Context, scheduleID, analysisID string) {
	sched, err := x.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		slog.Error("executor: deliver: fetch schedule", "schedule_id", scheduleID, "error", err)
		return
	}

	text := missingResultText
	result, err := x.store.GetAnalysisResult(ctx, analysisID)
	switch {
	case err == nil:
		text = result.ResultText
	case errors.Is(err, store.ErrNotFound):
		slog.Warn("executor: deliver: analysis result missing", "analysis_id", analysisID, "schedule_id", scheduleID)
	default:
		slog.Error("executor: deliver: fetch analysis result", "analysis_id", analysisID, "error", err)
		return
	}

	x.fanOut(ctx, sched, x.composeMessage(sched, text))
}

// composeMessage prefixes the result with message_intro when set, otherwise
// with a default header naming the analyzed chat.
func (x *Executor) composeMessage(sched *store.Schedule, text string) string {
	if sched.MessageIntro != "" {
		return sched.MessageIntro + "\n\n" + text
	}
	if sched.Chat != nil && sched.Chat.Name != "" {
		return fmt.Sprintf("Analysis for chat %s:\n\n%s", sched.Chat.Name, text)
	}
	return text
}

// fanOut sends text to every target chat individually. One failed chat never
// aborts the rest; there is no retry and no rollback.
func (x *Executor) fanOut(ctx context.Context, sched *store.Schedule, text string) {
	if sched.Bot == nil {
		slog.Error("executor: deliver: schedule has no bot", "schedule_id", sched.ID)
		return
	}
	targets, err := x.store.TargetChats(ctx, sched.ID)
	if err != nil {
		slog.Error("executor: deliver: fetch target chats", "schedule_id", sched.ID, "error", err)
		return
	}
	if len(targets) == 0 {
		slog.Info("executor: deliver: no target chats", "schedule_id", sched.ID)
		return
	}
	for _, tc := range targets {
		if err := x.sender.Send(ctx, sched.Bot.Token, tc.ChatID, text); err != nil {
			slog.Error("executor: deliver: send failed", "schedule_id", sched.ID, "chat_id", tc.ChatID, "error", err)
			continue
		}
		slog.Info("executor: delivered", "schedule_id", sched.ID, "chat_id", tc.ChatID)
	}
}
