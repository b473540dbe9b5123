// Package config provides configuration types and loading for chatlens.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// RoleLeader marks the one worker process that owns the job table and the
// control-plane consumer. All other replicas must run with a different role.
const RoleLeader = "leader"

// Config is the root configuration struct.
type Config struct {
	Store     StoreConfig     `json:"store"`
	Broker    BrokerConfig    `json:"broker"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Summary   SummaryConfig   `json:"summary"`
}

// StoreConfig groups schedule-store settings.
type StoreConfig struct {
	Path string `json:"path" envconfig:"STORE_PATH"`
}

// BrokerConfig groups Kafka control-plane settings.
type BrokerConfig struct {
	Brokers       string        `json:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic         string        `json:"topic" envconfig:"KAFKA_TOPIC"`
	ConsumerGroup string        `json:"consumerGroup" envconfig:"KAFKA_CONSUMER_GROUP"`
	RetryDelay    time.Duration `json:"retryDelay" envconfig:"KAFKA_RETRY_DELAY"`
}

// SchedulerConfig groups worker-process settings.
type SchedulerConfig struct {
	Role string `json:"role" envconfig:"SCHEDULER_ROLE"`
}

// SummaryConfig groups the summarization provider settings.
type SummaryConfig struct {
	APIKey      string        `json:"apiKey" envconfig:"YANDEX_API_KEY"`
	FolderID    string        `json:"folderId" envconfig:"YANDEX_FOLDER_ID"`
	APIURL      string        `json:"apiUrl" envconfig:"YANDEX_GPT_API_URL"`
	Model       string        `json:"model" envconfig:"YANDEX_GPT_MODEL"`
	Temperature float64       `json:"temperature" envconfig:"YANDEX_GPT_TEMPERATURE"`
	MaxTokens   int           `json:"maxTokens" envconfig:"YANDEX_GPT_MAX_TOKENS"`
	Timeout     time.Duration `json:"timeout" envconfig:"YANDEX_GPT_TIMEOUT"`
}

// DefaultConfig returns the baseline configuration before env overrides.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Path: "chatlens.db",
		},
		Broker: BrokerConfig{
			Brokers:       "localhost:9092",
			Topic:         "schedule-events",
			ConsumerGroup: "chatlens-scheduler",
			RetryDelay:    5 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Role: RoleLeader,
		},
		Summary: SummaryConfig{
			APIURL:      "https://llm.api.cloud.yandex.net/foundationModels/v1/completion",
			Model:       "yandexgpt-lite",
			Temperature: 0.6,
			MaxTokens:   2000,
			Timeout:     5 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, and the
// process environment. Existing env vars are never overridden by the file.
func Load() (Config, error) {
	if envFile := strings.TrimSpace(os.Getenv("CHATLENS_ENV_FILE")); envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	if err := envconfig.Process("CHATLENS", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: process environment: %w", err)
	}
	if cfg.Broker.RetryDelay <= 0 {
		cfg.Broker.RetryDelay = 5 * time.Second
	}
	return cfg, nil
}

// IsLeader reports whether this process owns the scheduler.
func (c SchedulerConfig) IsLeader() bool {
	return strings.EqualFold(strings.TrimSpace(c.Role), RoleLeader)
}
