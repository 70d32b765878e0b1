package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Storage backends understood by the record store.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port                   string        `mapstructure:"PORT"`
	Env                    string        `mapstructure:"ENV"`
	StoreBackend           string        `mapstructure:"STORE_BACKEND"`
	StoreDir               string        `mapstructure:"STORE_DIR"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32         `mapstructure:"DB_MIN_CONNS"`
	DBStatementTimeout     time.Duration `mapstructure:"DB_STATEMENT_TIMEOUT"`
	RedisURL               string        `mapstructure:"REDIS_URL"`
	DefaultClient          string        `mapstructure:"DEFAULT_CLIENT"`
	CORSOrigins            []string      `mapstructure:"CORS_ORIGINS"`
	SessionSigningKey      string        `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL             time.Duration `mapstructure:"SESSION_TTL"`
	NotificationCap        int           `mapstructure:"NOTIFICATION_CAP"`
	QueueTickInterval      time.Duration `mapstructure:"QUEUE_TICK_INTERVAL"`
	QueueMinutesPerPatient int           `mapstructure:"QUEUE_MINUTES_PER_PATIENT"`
	OTPTTL                 time.Duration `mapstructure:"OTP_TTL"`
	RateLimitRPS           float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst         int           `mapstructure:"RATE_LIMIT_BURST"`
	TrustProxy             bool          `mapstructure:"TRUST_PROXY"`
	MetricsEnabled         bool          `mapstructure:"METRICS_ENABLED"`
}

var envKeys = []string{
	"PORT", "ENV", "STORE_BACKEND", "STORE_DIR", "DATABASE_URL", "DB_MAX_CONNS",
	"DB_MIN_CONNS", "DB_STATEMENT_TIMEOUT", "REDIS_URL", "DEFAULT_CLIENT", "CORS_ORIGINS", "SESSION_SIGNING_KEY",
	"SESSION_TTL", "NOTIFICATION_CAP", "QUEUE_TICK_INTERVAL", "QUEUE_MINUTES_PER_PATIENT",
	"OTP_TTL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "TRUST_PROXY", "METRICS_ENABLED",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("STORE_DIR", "./data")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "5s")
	v.SetDefault("DEFAULT_CLIENT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("NOTIFICATION_CAP", 10)
	v.SetDefault("QUEUE_TICK_INTERVAL", "30s")
	v.SetDefault("QUEUE_MINUTES_PER_PATIENT", 5)
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("METRICS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	if cfg.IsDev() {
		log.Warn().Msg("server is running in DEVELOPMENT mode (ENV=development): " +
			"requests without a session token fall back to the client's stored session")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey returns the HMAC key used for session tokens. Development
// deployments without a configured key get a fixed, clearly insecure key.
func (c *Config) SigningKey() []byte {
	if c.SessionSigningKey == "" && c.IsDev() {
		return []byte("development-only-session-signing-key")
	}
	return []byte(c.SessionSigningKey)
}

// Validate checks that the configuration is usable. Each storage backend has
// its own connection requirement, and outside development a real signing key
// of at least 32 bytes is required.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.StoreDir == "" {
			return fmt.Errorf("STORE_DIR is required when STORE_BACKEND is %q", BackendFile)
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND is %q", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, file, redis, postgres, got %q", c.StoreBackend)
	}

	if !c.IsDev() && len(c.SessionSigningKey) < 32 {
		return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 bytes outside development (ENV=%q)", c.Env)
	}
	if c.NotificationCap < 1 {
		return fmt.Errorf("NOTIFICATION_CAP must be at least 1, got %d", c.NotificationCap)
	}
	if c.QueueTickInterval <= 0 {
		return fmt.Errorf("QUEUE_TICK_INTERVAL must be positive, got %s", c.QueueTickInterval)
	}
	if c.QueueMinutesPerPatient < 1 {
		return fmt.Errorf("QUEUE_MINUTES_PER_PATIENT must be at least 1, got %d", c.QueueMinutesPerPatient)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive, got %s", c.OTPTTL)
	}
	return nil
}
