package store

// Schema is the schedule-store schema, applied on open.
const Schema = `
CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bots (
	id TEXT PRIMARY KEY,
	bot_token TEXT NOT NULL,
	bot_username TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS prompts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	chat_id TEXT NOT NULL REFERENCES chats(id),
	sender TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_time ON messages(chat_id, timestamp);

CREATE TABLE IF NOT EXISTS chat_schedules (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	schedule_strategy TEXT NOT NULL,
	schedule_type TEXT NOT NULL,
	chat_id TEXT REFERENCES chats(id),
	prompt_id TEXT REFERENCES prompts(id),
	bot_id TEXT NOT NULL REFERENCES bots(id),
	interval_hours INTEGER NOT NULL DEFAULT 0,
	interval_minutes INTEGER NOT NULL DEFAULT 0,
	time_of_day TEXT,
	cron_expression TEXT,
	run_at DATETIME,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	last_run_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	send_strategy TEXT NOT NULL DEFAULT 'fixed',
	time_to_send TEXT,
	send_after_minutes INTEGER NOT NULL DEFAULT 0,
	notification_text TEXT NOT NULL DEFAULT '',
	message_intro TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON chat_schedules(enabled);

CREATE TABLE IF NOT EXISTS target_chats (
	id TEXT PRIMARY KEY,
	schedule_id TEXT NOT NULL REFERENCES chat_schedules(id) ON DELETE CASCADE,
	chat_id TEXT NOT NULL REFERENCES chats(id)
);
CREATE INDEX IF NOT EXISTS idx_target_chats_schedule ON target_chats(schedule_id);

CREATE TABLE IF NOT EXISTS analysis_results (
	id TEXT PRIMARY KEY,
	schedule_id TEXT REFERENCES chat_schedules(id),
	prompt_id TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	result_text TEXT NOT NULL,
	tokens_input INTEGER NOT NULL DEFAULT 0,
	tokens_output INTEGER NOT NULL DEFAULT 0,
	date_from DATETIME NOT NULL,
	date_to DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_analysis_schedule ON analysis_results(schedule_id);

CREATE TABLE IF NOT EXISTS schedule_runs (
	chat_id TEXT NOT NULL,
	schedule_id TEXT NOT NULL,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	last_run_at DATETIME,
	PRIMARY KEY (chat_id, schedule_id)
);
`
