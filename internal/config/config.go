package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Ticket   TicketConfig
	Notify   NotificationConfig
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
	SeedDemoData   bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	OpTimeoutSec   int
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	LockoutThreshold      int
	LockoutMinutes        int
	Argon2Time            uint32
	Argon2MemoryKiB       uint32
	Argon2Threads         uint8
}

// TicketConfig holds ticket workflow parameters.
type TicketConfig struct {
	LockTTLMinutes int
}

// NotificationConfig holds outbound notification targets. Empty values
// disable the corresponding channel.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
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
			Name:                  getEnv("APP_NAME", "syncplus-core"),
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
			SeedDemoData:   getEnvAsBool("SEED_DEMO_DATA", false),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			OpTimeoutSec:   getEnvAsInt("POSTGRES_OP_TIMEOUT_SECONDS", 5),
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
			LockoutThreshold:      getEnvAsInt("AUTH_LOCKOUT_THRESHOLD", 5),
			LockoutMinutes:        getEnvAsInt("AUTH_LOCKOUT_MINUTES", 15),
			Argon2Time:            uint32(getEnvAsInt("AUTH_ARGON2_TIME", 1)),
			Argon2MemoryKiB:       uint32(getEnvAsInt("AUTH_ARGON2_MEMORY_KIB", 64*1024)),
			Argon2Threads:         uint8(getEnvAsInt("AUTH_ARGON2_THREADS", 4)),
		},
		Ticket: TicketConfig{
			LockTTLMinutes: getEnvAsInt("TICKET_LOCK_TTL_MINUTES", 15),
		},
		Notify: NotificationConfig{
			EmailFrom:  os.Getenv("NOTIFY_EMAIL_FROM"),
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
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

// OpTimeout returns the per-operation storage timeout.
func (p PostgresConfig) OpTimeout() time.Duration {
	if p.OpTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.OpTimeoutSec) * time.Second
}

// LockTTL returns the advisory lock lease duration.
func (t TicketConfig) LockTTL() time.Duration {
	if t.LockTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(t.LockTTLMinutes) * time.Minute
}

// LockoutWindow returns the login lockout duration.
func (a AuthConfig) LockoutWindow() time.Duration {
	if a.LockoutMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.LockoutMinutes) * time.Minute
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
