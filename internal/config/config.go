package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig          `yaml:"app"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Redis        RedisConfig        `yaml:"redis"`
	Logger       LoggerConfig       `yaml:"logger"`
	Auth         AuthConfig         `yaml:"auth"`
	Realtime     RealtimeConfig     `yaml:"realtime"`
	Memory       MemoryConfig       `yaml:"memory"`
	Presence     PresenceConfig     `yaml:"presence"`
	Notification NotificationConfig `yaml:"notification"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `yaml:"name"`
	Env                   string `yaml:"env"`
	Host                  string `yaml:"host"`
	Port                  string `yaml:"port"`
	Version               string `yaml:"version"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int32  `yaml:"max_conns"`
	MinConns       int32  `yaml:"min_conns"`
	RunMigrations  bool   `yaml:"run_migrations"`
	ConnMaxIdleSec int32  `yaml:"conn_max_idle_seconds"`
	ConnMaxLifeSec int32  `yaml:"conn_max_life_seconds"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	TokenTTLHours  int    `yaml:"token_ttl_hours"`
	BcryptCost     int    `yaml:"bcrypt_cost"`
	AgentKeyPrefix string `yaml:"agent_key_prefix"`
}

// RealtimeConfig tunes websocket sessions.
type RealtimeConfig struct {
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`
	ReadLimitBytes      int `yaml:"read_limit_bytes"`
}

// MemoryConfig controls the agent memory store.
type MemoryConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

// PresenceConfig controls agent last-seen tracking.
type PresenceConfig struct {
	ThrottleSeconds int `yaml:"throttle_seconds"`
	QueueSize       int `yaml:"queue_size"`
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	WebhookURL            string `yaml:"webhook_url"`
	WebhookTimeoutSeconds int    `yaml:"webhook_timeout_seconds"`
}

// Load reads configuration from .env, an optional YAML file named by
// APP_CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:                  "agenthq",
			Env:                   "development",
			Host:                  "0.0.0.0",
			Port:                  "8080",
			Version:               "dev",
			RequestTimeoutSeconds: 30,
		},
		Postgres: PostgresConfig{
			MaxConns:       10,
			MinConns:       2,
			RunMigrations:  true,
			ConnMaxIdleSec: 30,
			ConnMaxLifeSec: 300,
		},
		Logger: LoggerConfig{Level: "info"},
		Auth: AuthConfig{
			JWTSecret:      "dev-secret",
			TokenTTLHours:  7 * 24,
			BcryptCost:     12,
			AgentKeyPrefix: "ahq_",
		},
		Realtime: RealtimeConfig{
			WriteTimeoutSeconds: 10,
			PingIntervalSeconds: 30,
			ReadLimitBytes:      4096,
		},
		Memory:       MemoryConfig{SweepIntervalSeconds: 300},
		Presence:     PresenceConfig{ThrottleSeconds: 30, QueueSize: 256},
		Notification: NotificationConfig{WebhookTimeoutSeconds: 5},
	}
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if val := os.Getenv("REDIS_DB"); val != "" {
		db, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}

	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnv("APP_PORT", cfg.App.Port)
	cfg.App.Version = getEnv("APP_VERSION", cfg.App.Version)
	cfg.App.RequestTimeoutSeconds = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", cfg.App.RequestTimeoutSeconds)

	cfg.Postgres.DSN = getEnv("POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Postgres.MaxConns = int32(getEnvAsInt("POSTGRES_MAX_CONNS", int(cfg.Postgres.MaxConns)))
	cfg.Postgres.MinConns = int32(getEnvAsInt("POSTGRES_MIN_CONNS", int(cfg.Postgres.MinConns)))
	cfg.Postgres.RunMigrations = getEnvAsBool("POSTGRES_RUN_MIGRATIONS", cfg.Postgres.RunMigrations)
	cfg.Postgres.ConnMaxIdleSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", int(cfg.Postgres.ConnMaxIdleSec)))
	cfg.Postgres.ConnMaxLifeSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", int(cfg.Postgres.ConnMaxLifeSec)))

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)

	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTLHours = getEnvAsInt("AUTH_TOKEN_TTL_HOURS", cfg.Auth.TokenTTLHours)
	cfg.Auth.BcryptCost = getEnvAsInt("AUTH_BCRYPT_COST", cfg.Auth.BcryptCost)
	cfg.Auth.AgentKeyPrefix = getEnv("AUTH_AGENT_KEY_PREFIX", cfg.Auth.AgentKeyPrefix)

	cfg.Realtime.WriteTimeoutSeconds = getEnvAsInt("REALTIME_WRITE_TIMEOUT_SECONDS", cfg.Realtime.WriteTimeoutSeconds)
	cfg.Realtime.PingIntervalSeconds = getEnvAsInt("REALTIME_PING_INTERVAL_SECONDS", cfg.Realtime.PingIntervalSeconds)
	cfg.Realtime.ReadLimitBytes = getEnvAsInt("REALTIME_READ_LIMIT_BYTES", cfg.Realtime.ReadLimitBytes)

	cfg.Memory.SweepIntervalSeconds = getEnvAsInt("MEMORY_SWEEP_INTERVAL_SECONDS", cfg.Memory.SweepIntervalSeconds)

	cfg.Presence.ThrottleSeconds = getEnvAsInt("PRESENCE_THROTTLE_SECONDS", cfg.Presence.ThrottleSeconds)
	cfg.Presence.QueueSize = getEnvAsInt("PRESENCE_QUEUE_SIZE", cfg.Presence.QueueSize)

	cfg.Notification.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", cfg.Notification.WebhookURL)
	cfg.Notification.WebhookTimeoutSeconds = getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", cfg.Notification.WebhookTimeoutSeconds)
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// TokenTTL returns the bearer token validity window.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// WriteTimeout bounds a single websocket frame write.
func (r RealtimeConfig) WriteTimeout() time.Duration {
	return seconds(r.WriteTimeoutSeconds)
}

// PingInterval is the websocket keepalive period.
func (r RealtimeConfig) PingInterval() time.Duration {
	return seconds(r.PingIntervalSeconds)
}

// SweepInterval is the period of the expired-memory sweep. Zero disables it.
func (m MemoryConfig) SweepInterval() time.Duration {
	return seconds(m.SweepIntervalSeconds)
}

// Throttle is the minimum gap between persisted last-seen updates per agent.
func (p PresenceConfig) Throttle() time.Duration {
	return seconds(p.ThrottleSeconds)
}

// WebhookTimeout bounds a single webhook delivery.
func (n NotificationConfig) WebhookTimeout() time.Duration {
	return seconds(n.WebhookTimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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
