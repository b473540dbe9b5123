package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Write operations used by the API tier (and tests) to manage entities. The
// scheduler core itself only calls UpdateScheduleRun and DisableSchedule.

// CreateChat inserts a chat, assigning CreatedAt when unset.
func (s *Store) CreateChat(ctx context.Context, c *Chat) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create chat: %w", err)
	}
	return nil
}

// CreateBot inserts a bot.
func (s *Store) CreateBot(ctx context.Context, b *Bot) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bots (id, bot_token, bot_username) VALUES (?, ?, ?)`,
		b.ID, b.Token, b.Username)
	if err != nil {
		return fmt.Errorf("store: create bot: %w", err)
	}
	return nil
}

// CreatePrompt inserts a prompt.
func (s *Store) CreatePrompt(ctx context.Context, p *Prompt) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompts (id, name, text) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.Text)
	if err != nil {
		return fmt.Errorf("store: create prompt: %w", err)
	}
	return nil
}

// AddMessage inserts a chat message.
func (s *Store) AddMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender, text, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, m.Sender, m.Text, m.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("store: add message: %w", err)
	}
	return nil
}

// CreateSchedule inserts a schedule. Relations are referenced by id through
// the stub Chat/Prompt/Bot fields.
func (s *Store) CreateSchedule(ctx context.Context, sched *Schedule) error {
	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	if sched.CreatedAt.IsZero() {
		sched.CreatedAt = time.Now().UTC()
	}
	var chatID, promptID, botID, timeOfDay, timeToSend, runAt, lastRunAt any
	if sched.Chat != nil {
		chatID = sched.Chat.ID
	}
	if sched.Prompt != nil {
		promptID = sched.Prompt.ID
	}
	if sched.Bot != nil {
		botID = sched.Bot.ID
	}
	if sched.TimeOfDay != nil {
		timeOfDay = sched.TimeOfDay.String()
	}
	if sched.TimeToSend != nil {
		timeToSend = sched.TimeToSend.String()
	}
	if sched.RunAt != nil {
		runAt = sched.RunAt.UTC()
	}
	if sched.LastRunAt != nil {
		lastRunAt = sched.LastRunAt.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_schedules
		 (id, company_id, schedule_strategy, schedule_type,
		  chat_id, prompt_id, bot_id,
		  interval_hours, interval_minutes, time_of_day, cron_expression, run_at,
		  enabled, last_run_at, created_at,
		  send_strategy, time_to_send, send_after_minutes,
		  notification_text, message_intro)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.CompanyID, sched.Strategy, sched.Type,
		chatID, promptID, botID,
		sched.IntervalHours, sched.IntervalMinutes, timeOfDay, sched.CronExpression, runAt,
		sched.Enabled, lastRunAt, sched.CreatedAt,
		sched.SendStrategy, timeToSend, sched.SendAfterMinutes,
		sched.NotificationText, sched.MessageIntro)
	if err != nil {
		return fmt.Errorf("store: create schedule: %w", err)
	}
	return nil
}

// UpdateScheduleTrigger rewrites the timing fields of a schedule. Used by the
// API tier for edits; the worker picks the change up via a replace event.
func (s *Store) UpdateScheduleTrigger(ctx context.Context, sched *Schedule) error {
	var timeOfDay, runAt any
	if sched.TimeOfDay != nil {
		timeOfDay = sched.TimeOfDay.String()
	}
	if sched.RunAt != nil {
		runAt = sched.RunAt.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_schedules SET schedule_type = ?, interval_hours = ?,
		 interval_minutes = ?, time_of_day = ?, cron_expression = ?, run_at = ?
		 WHERE id = ?`,
		sched.Type, sched.IntervalHours, sched.IntervalMinutes,
		timeOfDay, sched.CronExpression, runAt, sched.ID)
	if err != nil {
		return fmt.Errorf("store: update schedule trigger: %w", err)
	}
	return nil
}

// SetScheduleEnabled toggles a schedule on or off.
func (s *Store) SetScheduleEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_schedules SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("store: set schedule enabled: %w", err)
	}
	return nil
}

// DeleteSchedule removes a schedule and its target chats.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete schedule: %w", err)
	}
	return nil
}

// AddTargetChat registers a delivery destination for a schedule.
func (s *Store) AddTargetChat(ctx context.Context, scheduleID, chatID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO target_chats (id, schedule_id, chat_id) VALUES (?, ?, ?)`,
		uuid.NewString(), scheduleID, chatID)
	if err != nil {
		return fmt.Errorf("store: add target chat: %w", err)
	}
	return nil
}
