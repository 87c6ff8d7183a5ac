package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret          string
	AdminKey           string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	LoginAttemptLimit  int
	LoginAttemptWindow time.Duration
}

type SubscriptionConfig struct {
	CacheTTL      time.Duration
	SweepInterval time.Duration
}

type Config struct {
	Environment  string
	HTTP         HTTPConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Subscription SubscriptionConfig
}

// Load reads config.yaml (if present) and COURSEDESK_* environment
// variables. The JWT secret and admin key have no defaults: running
// without them is a configuration error, never a silent fallback.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("COURSEDESK")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtsecret is required")
	}
	if cfg.Auth.AdminKey == "" {
		return nil, fmt.Errorf("auth.adminkey is required")
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.accesstokenttl", "24h")
	v.SetDefault("auth.refreshtokenttl", "168h")
	v.SetDefault("auth.loginattemptlimit", 10)
	v.SetDefault("auth.loginattemptwindow", "1m")

	v.SetDefault("subscription.cachettl", "720h")
	v.SetDefault("subscription.sweepinterval", "6h")
}
