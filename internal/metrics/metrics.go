// Package metrics records analysis run outcomes, labeled by chat and
// schedule. Recording is fire-and-forget: a failed write never affects a run.
package metrics

import (
	"database/sql"
	"log/slog"
	"time"
)

// Recorder counts successful and failed analysis runs.
type Recorder interface {
	RunSucceeded(chatID, scheduleID string)
	RunFailed(chatID, scheduleID string)
}

// StoreRecorder persists counters into the schedule_runs table (best-effort).
type StoreRecorder struct {
	db *sql.DB
}

// NewStoreRecorder creates a recorder on the schedule store's database.
func NewStoreRecorder(db *sql.DB) *StoreRecorder {
	return &StoreRecorder{db: db}
}

func (r *StoreRecorder) RunSucceeded(chatID, scheduleID string) {
	r.bump(chatID, scheduleID, 1, 0)
}

func (r *StoreRecorder) RunFailed(chatID, scheduleID string) {
	r.bump(chatID, scheduleID, 0, 1)
}

func (r *StoreRecorder) bump(chatID, scheduleID string, success, failure int) {
	_, err := r.db.Exec(
		`INSERT INTO schedule_runs (chat_id, schedule_id, success_count, failure_count, last_run_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id, schedule_id) DO UPDATE SET
		   success_count = success_count + excluded.success_count,
		   failure_count = failure_count + excluded.failure_count,
		   last_run_at = excluded.last_run_at`,
		chatID, scheduleID, success, failure, time.Now().UTC())
	if err != nil {
		slog.Warn("metrics: record run", "chat_id", chatID, "schedule_id", scheduleID, "error", err)
	}
}

// Noop discards all recordings.
type Noop struct{}

func (Noop) RunSucceeded(chatID, scheduleID string) {}
func (Noop) RunFailed(chatID, scheduleID string)    {}
