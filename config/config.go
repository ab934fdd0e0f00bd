// Package config loads process configuration from the environment, the
// same getEnv/getEnvAsInt idiom the teacher uses, extended with a duration
// helper for the coordinator/hub/NFC tick and retry intervals.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/arung-agamani/musicbox-core/internal/engine"
)

// Config bundles the process-wide settings: where playlists live on disk,
// the metrics listen address, and every Engine sub-component's tunables.
type Config struct {
	DataDir      string
	SnapshotFile string
	MetricsAddr  string
	LogLevel     string

	CommandQueueSize   int
	CommandTimeout     time.Duration
	PositionPollTick   time.Duration
	BackendCallTimeout time.Duration

	SubscriberBuffer    int
	OutboxMaxAttempts   int
	OutboxBaseBackoff   time.Duration
	OutboxDrainInterval time.Duration
	IdempotencyTTL      time.Duration
	IdempotencySweep    time.Duration

	NFCSweepInterval time.Duration
}

// Load reads configuration from the environment wherever a variable is set
// and parses. Otherwise the engine tunables fall back to
// engine.DefaultConfig()'s values (which include the idempotency TTL and
// retry budget recommended by SPEC_FULL.md section 9), and the paths, the
// metrics address, the log level and CommandTimeout fall back to fixed
// literals.
func Load() *Config {
	engineDefaults := engine.DefaultConfig()
	return &Config{
		DataDir:      getEnv("DATA_DIR", "./data"),
		SnapshotFile: getEnv("SNAPSHOT_FILE", "./data/playlists.json"),
		MetricsAddr:  getEnv("METRICS_ADDR", ":9090"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		CommandQueueSize:   getEnvAsInt("COMMAND_QUEUE_SIZE", engineDefaults.Coordinator.QueueSize),
		CommandTimeout:     getEnvAsDuration("COMMAND_TIMEOUT", 5*time.Second),
		PositionPollTick:   getEnvAsDuration("POSITION_POLL_TICK", engineDefaults.Coordinator.PositionPollInterval),
		BackendCallTimeout: getEnvAsDuration("BACKEND_CALL_TIMEOUT", engineDefaults.Coordinator.BackendCallTimeout),

		SubscriberBuffer:    getEnvAsInt("SUBSCRIBER_BUFFER", engineDefaults.Hub.SubscriberBuffer),
		OutboxMaxAttempts:   getEnvAsInt("OUTBOX_MAX_ATTEMPTS", engineDefaults.Hub.OutboxMaxAttempts),
		OutboxBaseBackoff:   getEnvAsDuration("OUTBOX_BASE_BACKOFF", engineDefaults.Hub.OutboxBaseBackoff),
		OutboxDrainInterval: getEnvAsDuration("OUTBOX_DRAIN_INTERVAL", engineDefaults.Hub.OutboxDrainInterval),
		IdempotencyTTL:      getEnvAsDuration("IDEMPOTENCY_TTL", engineDefaults.Hub.IdempotencyTTL),
		IdempotencySweep:    getEnvAsDuration("IDEMPOTENCY_SWEEP", engineDefaults.Hub.IdempotencySweep),

		NFCSweepInterval: getEnvAsDuration("NFC_SWEEP_INTERVAL", engineDefaults.NFC.SweepInterval),
	}
}

// EngineConfig projects the loaded Config onto engine.Config, the shape
// engine.New expects.
func (c *Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Coordinator.QueueSize = c.CommandQueueSize
	cfg.Coordinator.PositionPollInterval = c.PositionPollTick
	cfg.Coordinator.BackendCallTimeout = c.BackendCallTimeout
	cfg.Hub.SubscriberBuffer = c.SubscriberBuffer
	cfg.Hub.OutboxMaxAttempts = c.OutboxMaxAttempts
	cfg.Hub.OutboxBaseBackoff = c.OutboxBaseBackoff
	cfg.Hub.OutboxDrainInterval = c.OutboxDrainInterval
	cfg.Hub.IdempotencyTTL = c.IdempotencyTTL
	cfg.Hub.IdempotencySweep = c.IdempotencySweep
	cfg.NFC.SweepInterval = c.NFCSweepInterval
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}
