// Package config handles loading application configuration from environment variables.
// All settings have sensible defaults for local development.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port               string
	DatabasePath       string
	StaticDir          string
	JWTSecret          string
	TokenDuration      time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration

	SentryDSN         string
	SentryEnvironment string
	// SentryDSNFrontend is the only DSN the browser tunnel forwards to.
	SentryDSNFrontend string

	// Background jobs. A zero SessionMaxAge disables the reaper and an
	// empty SongWatchDir disables the song importer.
	SessionMaxAge        time.Duration
	SessionSweepSchedule string
	SongWatchDir         string

	// Realtime
	ValkeyAddr        string
	ValkeyChannel     string
	WSSendBuffer      int
	WSPingInterval    time.Duration
	WSMaxMessageBytes int64
	WSEventsPerSecond float64
	WSEventBurst      int
}

// LoadEnvFile loads variables from a dotenv file without overriding values
// already set in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads configuration from environment variables, using defaults where not set.
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "3000"),
		DatabasePath:       getEnv("DATABASE_PATH", "./jamoveo.db"),
		StaticDir:          getEnv("STATIC_DIR", ""),
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"), // #nosec G101 -- intentional dev default
		TokenDuration:      getDurationEnv("TOKEN_DURATION", 12*time.Hour),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 20),
		CORSAllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
		SentryDSNFrontend: getEnv("SENTRY_DSN_FRONTEND", ""),

		SessionMaxAge:        getDurationEnv("SESSION_MAX_AGE", 0),
		SessionSweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 5m"),
		SongWatchDir:         getEnv("SONG_WATCH_DIR", ""),

		ValkeyAddr:        getEnv("VALKEY_ADDR", ""),
		ValkeyChannel:     getEnv("VALKEY_CHANNEL", "jamoveo:sessions"),
		WSSendBuffer:      getIntEnv("WS_SEND_BUFFER", 256),
		WSPingInterval:    getDurationEnv("WS_PING_INTERVAL", 25*time.Second),
		WSMaxMessageBytes: int64(getIntEnv("WS_MAX_MESSAGE_BYTES", 1<<20)),
		WSEventsPerSecond: getFloatEnv("WS_EVENTS_PER_SECOND", 20),
		WSEventBurst:      getIntEnv("WS_EVENT_BURST", 40),
	}
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
