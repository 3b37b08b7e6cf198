package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Automation AutomationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the optional event sink settings. Empty Brokers
// disables the sink.
type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters. Token issuance is
// handled by the external identity service.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

// AutomationConfig controls the recurring sweep and seeds the settings
// row on first boot.
type AutomationConfig struct {
	SweepSpec                         string
	DefaultPendingReminderEnabled     bool
	DefaultPendingReminderHours       int
	DefaultAutoSolveEnabled           bool
	DefaultAutoSolveHours             int
	DefaultAutoCloseEnabled           bool
	DefaultAutoCloseHours             int
	DefaultAttachmentRetentionEnabled bool
	DefaultAttachmentRetentionDays    int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-core"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "helpdesk.ticket-events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60),
		},
		Automation: AutomationConfig{
			SweepSpec:                         getEnv("AUTOMATION_SWEEP_SPEC", "@every 5m"),
			DefaultPendingReminderEnabled:     getEnvAsBool("AUTOMATION_PENDING_REMINDER_ENABLED", false),
			DefaultPendingReminderHours:       getEnvAsInt("AUTOMATION_PENDING_REMINDER_HOURS", 24),
			DefaultAutoSolveEnabled:           getEnvAsBool("AUTOMATION_AUTO_SOLVE_ENABLED", false),
			DefaultAutoSolveHours:             getEnvAsInt("AUTOMATION_AUTO_SOLVE_HOURS", 72),
			DefaultAutoCloseEnabled:           getEnvAsBool("AUTOMATION_AUTO_CLOSE_ENABLED", false),
			DefaultAutoCloseHours:             getEnvAsInt("AUTOMATION_AUTO_CLOSE_HOURS", 168),
			DefaultAttachmentRetentionEnabled: getEnvAsBool("AUTOMATION_ATTACHMENT_RETENTION_ENABLED", false),
			DefaultAttachmentRetentionDays:    getEnvAsInt("AUTOMATION_ATTACHMENT_RETENTION_DAYS", 90),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether the Kafka event sink is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
