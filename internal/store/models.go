package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleStrategy selects what a schedule does when it fires.
type ScheduleStrategy string

const (
	StrategyAnalysis     ScheduleStrategy = "analysis"
	StrategyNotification ScheduleStrategy = "notification"
)

// ScheduleType selects the timing rule for a schedule.
type ScheduleType string

const (
	TypeInterval  ScheduleType = "interval"
	TypeDailyTime ScheduleType = "daily_time"
	TypeCron      ScheduleType = "cron"
	TypeOnce      ScheduleType = "once"
)

// SendStrategy selects when a completed result is delivered.
type SendStrategy string

const (
	SendFixed    SendStrategy = "fixed"
	SendRelative SendStrategy = "relative"
)

// TimeOfDay is a wall-clock time without a date, stored as "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (seconds, if present, are ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad minute", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the moment of this wall-clock time on day's date, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Chat is a chat community known to the system.
type Chat struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Bot is a delivery bot registered by a tenant.
type Bot struct {
	ID       string `json:"id"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Prompt is a tenant-owned summarization prompt.
type Prompt struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Message is a stored chat message inside an analysis window.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Schedule is the unit of orchestration. Exactly one of the interval fields,
// TimeOfDay, CronExpression or RunAt is meaningful, selected by Type; exactly
// one of TimeToSend or SendAfterMinutes is meaningful, selected by SendStrategy.
type Schedule struct {
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id"`
	Strategy  ScheduleStrategy `json:"schedule_strategy"`
	Type      ScheduleType     `json:"schedule_type"`

	IntervalHours   int        `json:"interval_hours"`
	IntervalMinutes int        `json:"interval_minutes"`
	TimeOfDay       *TimeOfDay `json:"time_of_day,omitempty"`
	CronExpression  string     `json:"cron_expression,omitempty"`
	RunAt           *time.Time `json:"run_at,omitempty"`

	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	SendStrategy     SendStrategy `json:"send_strategy"`
	TimeToSend       *TimeOfDay   `json:"time_to_send,omitempty"`
	SendAfterMinutes int          `json:"send_after_minutes"`

	NotificationText string `json:"notification_text,omitempty"`
	MessageIntro     string `json:"message_intro,omitempty"`

	// Resolved relations. Chat and Prompt are nil for pure notification
	// schedules; Bot is always set.
	Chat   *Chat   `json:"chat,omitempty"`
	Prompt *Prompt `json:"prompt,omitempty"`
	Bot    *Bot    `json:"bot,omitempty"`
}

// TargetChat is a destination for delivered results.
type TargetChat struct {
	ID         string `json:"id"`
	ScheduleID string `json:"schedule_id"`
	ChatID     string `json:"chat_id"`
}

// AnalysisResult is one completed summarization run. Immutable once written.
type AnalysisResult struct {
	ID           string    `json:"id"`
	ScheduleID   string    `json:"schedule_id,omitempty"`
	PromptID     string    `json:"prompt_id"`
	ChatID       string    `json:"chat_id"`
	CompanyID    string    `json:"company_id"`
	ResultText   string    `json:"result_text"`
	TokensInput  int       `json:"tokens_input"`
	TokensOutput int       `json:"tokens_output"`
	DateFrom     time.Time `json:"date_from"`
	DateTo       time.Time `json:"date_to"`
	CreatedAt    time.Time `json:"created_at"`
}
