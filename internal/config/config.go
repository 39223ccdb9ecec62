package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	LogLevel    slog.Level

	// RedisURL enables event streaming when set. Empty disables the sink.
	RedisURL string

	MaxRounds      int
	SessionTimeout time.Duration

	BatchSize   int
	MaxParallel int

	AnonymizedTargeting bool
	ContentFilter       bool

	// RandomSeed makes a run replayable. 0 means seed from entropy.
	RandomSeed int64
}

func Load() *Config {
	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		LogLevel:            parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:            getEnv("REDIS_URL", ""),
		MaxRounds:           getEnvInt("MAX_ROUNDS", 20),
		SessionTimeout:      getEnvDuration("SESSION_TIMEOUT", 10*time.Minute),
		BatchSize:           getEnvInt("BATCH_SIZE", 10),
		MaxParallel:         getEnvInt("MAX_PARALLEL", 4),
		AnonymizedTargeting: getEnvBool("ANONYMIZED_TARGETING", true),
		ContentFilter:       getEnvBool("CONTENT_FILTER", false),
		RandomSeed:          getEnvInt64("RANDOM_SEED", 0),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
