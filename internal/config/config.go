package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the coordination core.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Core     CoreConfig
}

// AppConfig controls process level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// PostgresConfig holds DB connection values for the audit/operator store.
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

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// CoreConfig carries the coordination durations. All of them are required and
// validated at startup; the workers refuse to run on a zero or negative value.
type CoreConfig struct {
	AggregationWindowSeconds int
	ReminderDefaultHours     int
	TicketRetentionDays      int
	DayBucketRetentionDays   int
	WeekBucketRetentionDays  int
	MonthBucketRetentionDays int
	StatsRefreshSeconds      int
}

// Load reads configuration from environment variables, applying defaults where
// possible, and fails fast on invalid coordination values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "helpdesk-core"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
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
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Core: CoreConfig{
			AggregationWindowSeconds: getEnvAsInt("AGGREGATION_WINDOW_SECONDS", 60),
			ReminderDefaultHours:     getEnvAsInt("REMINDER_DEFAULT_HOURS", 24),
			TicketRetentionDays:      getEnvAsInt("TICKET_RETENTION_DAYS", 30),
			DayBucketRetentionDays:   getEnvAsInt("STATS_DAY_RETENTION_DAYS", 32),
			WeekBucketRetentionDays:  getEnvAsInt("STATS_WEEK_RETENTION_DAYS", 60),
			MonthBucketRetentionDays: getEnvAsInt("STATS_MONTH_RETENTION_DAYS", 400),
			StatsRefreshSeconds:      getEnvAsInt("STATS_REFRESH_SECONDS", 300),
		},
	}

	if err := cfg.Core.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces positive coordination durations.
func (c CoreConfig) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"AGGREGATION_WINDOW_SECONDS", c.AggregationWindowSeconds},
		{"REMINDER_DEFAULT_HOURS", c.ReminderDefaultHours},
		{"TICKET_RETENTION_DAYS", c.TicketRetentionDays},
		{"STATS_DAY_RETENTION_DAYS", c.DayBucketRetentionDays},
		{"STATS_WEEK_RETENTION_DAYS", c.WeekBucketRetentionDays},
		{"STATS_MONTH_RETENTION_DAYS", c.MonthBucketRetentionDays},
		{"STATS_REFRESH_SECONDS", c.StatsRefreshSeconds},
	}
	for _, check := range checks {
		if check.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", check.name, check.value)
		}
	}
	return nil
}

// AggregationWindow returns the debounce timeout T.
func (c CoreConfig) AggregationWindow() time.Duration {
	return time.Duration(c.AggregationWindowSeconds) * time.Second
}

// ReminderDefault returns the default reminder delay.
func (c CoreConfig) ReminderDefault() time.Duration {
	return time.Duration(c.ReminderDefaultHours) * time.Hour
}

// TicketRetention returns the record TTL for stored tickets.
func (c CoreConfig) TicketRetention() time.Duration {
	return time.Duration(c.TicketRetentionDays) * 24 * time.Hour
}

// BucketRetention returns the counter-bucket TTLs in day/week/month order.
func (c CoreConfig) BucketRetention() (day, week, month time.Duration) {
	return time.Duration(c.DayBucketRetentionDays) * 24 * time.Hour,
		time.Duration(c.WeekBucketRetentionDays) * 24 * time.Hour,
		time.Duration(c.MonthBucketRetentionDays) * 24 * time.Hour
}

// StatsRefresh returns the period of the stored-snapshot refresher.
func (c CoreConfig) StatsRefresh() time.Duration {
	return time.Duration(c.StatsRefreshSeconds) * time.Second
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
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
