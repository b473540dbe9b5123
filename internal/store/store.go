// Package store implements the schedule store on sqlite. It is the single
// source of truth for schedules; the trigger engine's job table is a derived
// cache rebuilt from here on every cold start.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the sqlite schedule database.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the schedule store at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle (used by the metrics recorder).
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

const scheduleColumns = `id, company_id, schedule_strategy, schedule_type,
	chat_id, prompt_id, bot_id,
	interval_hours, interval_minutes, time_of_day, cron_expression, run_at,
	enabled, last_run_at, created_at,
	send_strategy, time_to_send, send_after_minutes,
	notification_text, message_intro`

// GetSchedule fetches one schedule with its chat, prompt and bot resolved.
func (s *Store) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM chat_schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if err != nil {
		return nil, err
	}
	if err := s.resolveRelations(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// EnabledSchedules fetches every enabled schedule with relations resolved.
func (s *Store) EnabledSchedules(ctx context.Context) ([]*Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM chat_schedules WHERE enabled = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: enabled schedules: %w", err)
	}
	defer rows.Close()

	var out []*Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: enabled schedules: %w", err)
	}
	for _, sched := range out {
		if err := s.resolveRelations(ctx, sched); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var (
		sched                       Schedule
		chatID, promptID, botID     sql.NullString
		timeOfDay, cron, timeToSend sql.NullString
		runAt, lastRunAt            sql.NullTime
	)
	err := row.Scan(
		&sched.ID, &sched.CompanyID, &sched.Strategy, &sched.Type,
		&chatID, &promptID, &botID,
		&sched.IntervalHours, &sched.IntervalMinutes, &timeOfDay, &cron, &runAt,
		&sched.Enabled, &lastRunAt, &sched.CreatedAt,
		&sched.SendStrategy, &timeToSend, &sched.SendAfterMinutes,
		&sched.NotificationText, &sched.MessageIntro,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan schedule: %w", err)
	}
	sched.CronExpression = cron.String
	if runAt.Valid {
		t := runAt.Time
		sched.RunAt = &t
	}
	if lastRunAt.Valid {
		t := lastRunAt.Time
		sched.LastRunAt = &t
	}
	if timeOfDay.Valid && timeOfDay.String != "" {
		tod, err := ParseTimeOfDay(timeOfDay.String)
		if err != nil {
			return nil, fmt.Errorf("store: schedule %s: %w", sched.ID, err)
		}
		sched.TimeOfDay = &tod
	}
	if timeToSend.Valid && timeToSend.String != "" {
		tts, err := ParseTimeOfDay(timeToSend.String)
		if err != nil {
			return nil, fmt.Errorf("store: schedule %s: %w", sched.ID, err)
		}
		sched.TimeToSend = &tts
	}
	// Foreign keys are stashed on the relation stubs; resolveRelations swaps
	// them for full rows.
	if chatID.Valid && chatID.String != "" {
		sched.Chat = &Chat{ID: chatID.String}
	}
	if promptID.Valid && promptID.String != "" {
		sched.Prompt = &Prompt{ID: promptID.String}
	}
	if botID.Valid && botID.String != "" {
		sched.Bot = &Bot{ID: botID.String}
	}
	return &sched, nil
}

func (s *Store) resolveRelations(ctx context.Context, sched *Schedule) error {
	if sched.Chat != nil {
		chat, err := s.GetChat(ctx, sched.Chat.ID)
		if err != nil {
			return fmt.Errorf("store: schedule %s chat: %w", sched.ID, err)
		}
		sched.Chat = chat
	}
	if sched.Prompt != nil {
		var p Prompt
		err := s.db.QueryRowContext(ctx,
			`SELECT id, name, text FROM prompts WHERE id = ?`, sched.Prompt.ID).
			Scan(&p.ID, &p.Name, &p.Text)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: schedule %s prompt %s: %w", sched.ID, sched.Prompt.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("store: schedule %s prompt: %w", sched.ID, err)
		}
		sched.Prompt = &p
	}
	if sched.Bot != nil {
		var b Bot
		err := s.db.QueryRowContext(ctx,
			`SELECT id, bot_token, bot_username FROM bots WHERE id = ?`, sched.Bot.ID).
			Scan(&b.ID, &b.Token, &b.Username)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: schedule %s bot %s: %w", sched.ID, sched.Bot.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("store: schedule %s bot: %w", sched.ID, err)
		}
		sched.Bot = &b
	}
	return nil
}

// GetChat fetches one chat.
func (s *Store) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get chat: %w", err)
	}
	return &c, nil
}

// UpdateScheduleRun advances last_run_at. The core never touches structural
// fields, so API-driven edits cannot conflict with this write.
func (s *Store) UpdateScheduleRun(ctx context.Context, id string, lastRunAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_schedules SET last_run_at = ? WHERE id = ?`, lastRunAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("store: update schedule run: %w", err)
	}
	return nil
}

// DisableSchedule marks a schedule disabled (terminal state for once-type).
func (s *Store) DisableSchedule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_schedules SET enabled = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: disable schedule: %w", err)
	}
	return nil
}

// OldestMessageTime returns the timestamp of the chat's earliest stored
// message. ok is false when the chat has no messages.
func (s *Store) OldestMessageTime(ctx context.Context, chatID string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM messages WHERE chat_id = ? ORDER BY timestamp ASC LIMIT 1`, chatID).
		Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("store: oldest message: %w", err)
	}
	return ts, true, nil
}

// MessagesBetween returns the chat's messages in [from, to], oldest first.
func (s *Store) MessagesBetween(ctx context.Context, chatID string, from, to time.Time) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, sender, text, timestamp FROM messages
		 WHERE chat_id = ? AND timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp ASC`, chatID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: messages between: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Text, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateAnalysisResult persists one run result. Assigns ID and CreatedAt.
func (s *Store) CreateAnalysisResult(ctx context.Context, r *AnalysisResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	var scheduleID any
	if r.ScheduleID != "" {
		scheduleID = r.ScheduleID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_results
		 (id, schedule_id, prompt_id, chat_id, company_id, result_text,
		  tokens_input, tokens_output, date_from, date_to, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, scheduleID, r.PromptID, r.ChatID, r.CompanyID, r.ResultText,
		r.TokensInput, r.TokensOutput, r.DateFrom.UTC(), r.DateTo.UTC(), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create analysis result: %w", err)
	}
	return nil
}

// GetAnalysisResult fetches one result by id.
func (s *Store) GetAnalysisResult(ctx context.Context, id string) (*AnalysisResult, error) {
	var (
		r          AnalysisResult
		scheduleID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, schedule_id, prompt_id, chat_id, company_id, result_text,
		        tokens_input, tokens_output, date_from, date_to, created_at
		 FROM analysis_results WHERE id = ?`, id).
		Scan(&r.ID, &scheduleID, &r.PromptID, &r.ChatID, &r.CompanyID, &r.ResultText,
			&r.TokensInput, &r.TokensOutput, &r.DateFrom, &r.DateTo, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get analysis result: %w", err)
	}
	r.ScheduleID = scheduleID.String
	return &r, nil
}

// TargetChats returns the schedule's delivery destinations.
func (s *Store) TargetChats(ctx context.Context, scheduleID string) ([]TargetChat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, schedule_id, chat_id FROM target_chats WHERE schedule_id = ?`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("store: target chats: %w", err)
	}
	defer rows.Close()

	var out []TargetChat
	for rows.Next() {
		var tc TargetChat
		if err := rows.Scan(&tc.ID, &tc.ScheduleID, &tc.ChatID); err != nil {
			return nil, fmt.Errorf("store: scan target chat: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
