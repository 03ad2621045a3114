package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/attendify/notify-agent/internal/shared/infrastructure/database"
)

const (
	StrategyFixed       = "fixed"
	StrategyExponential = "exponential"
)

// Config holds all configuration for the agent
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Display   DisplayConfig   `mapstructure:"display"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Journal   JournalConfig   `mapstructure:"journal"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string `mapstructure:"port" validate:"required,numeric"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// APIConfig points at the backend that owns the notifications.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type ReconnectConfig struct {
	Strategy string        `mapstructure:"strategy" validate:"oneof=fixed exponential"`
	Delay    time.Duration `mapstructure:"delay" validate:"gt=0"`
	MaxDelay time.Duration `mapstructure:"max_delay" validate:"gtefield=Delay"`
}

type DisplayConfig struct {
	Timezone string `mapstructure:"timezone" validate:"required"`
	Layout   string `mapstructure:"layout" validate:"required"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type RedisConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Key                  string `mapstructure:"key" validate:"required_if=Enabled true"`
	database.RedisConfig `mapstructure:",squash"`
}

type JournalConfig struct {
	Enabled                 bool   `mapstructure:"enabled"`
	MigrationsPath          string `mapstructure:"migrations_path" validate:"required_if=Enabled true"`
	database.PostgresConfig `mapstructure:",squash"`
}

// env maps config keys to the environment variables that override them.
var env = map[string]string{
	"server.port":             "PORT",
	"server.allowed_origins":  "ALLOWED_ORIGINS",
	"api.base_url":            "API_BASE_URL",
	"api.token":               "API_TOKEN",
	"api.timeout":             "API_TIMEOUT",
	"reconnect.strategy":      "RECONNECT_STRATEGY",
	"reconnect.delay":         "RECONNECT_DELAY",
	"reconnect.max_delay":     "RECONNECT_MAX_DELAY",
	"display.timezone":        "DISPLAY_TIMEZONE",
	"display.layout":          "DISPLAY_LAYOUT",
	"jwt.secret":              "JWT_SECRET",
	"logging.level":           "LOG_LEVEL",
	"redis.enabled":           "REDIS_ENABLED",
	"redis.host":              "REDIS_HOST",
	"redis.port":              "REDIS_PORT",
	"redis.password":          "REDIS_PASSWORD",
	"redis.key":               "REDIS_KEY",
	"journal.enabled":         "JOURNAL_ENABLED",
	"journal.host":            "DB_HOST",
	"journal.port":            "DB_PORT",
	"journal.user":            "DB_USER",
	"journal.password":        "DB_PASSWORD",
	"journal.dbname":          "DB_NAME",
	"journal.sslmode":         "DB_SSLMODE",
	"journal.migrations_path": "MIGRATIONS_PATH",
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", "http://localhost:4200")

	v.SetDefault("api.base_url", "http://127.0.0.1:8000")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", "10s")

	v.SetDefault("reconnect.strategy", StrategyFixed)
	v.SetDefault("reconnect.delay", "3s")
	v.SetDefault("reconnect.max_delay", "30s")

	v.SetDefault("display.timezone", "Asia/Kolkata")
	v.SetDefault("display.layout", "02 Jan 2006, 03:04 PM")

	v.SetDefault("jwt.secret", "default-dev-secret")
	v.SetDefault("logging.level", "info")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "attendify:notifications")

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.host", "localhost")
	v.SetDefault("journal.port", "5432")
	v.SetDefault("journal.user", "postgres")
	v.SetDefault("journal.password", "")
	v.SetDefault("journal.dbname", "attendify")
	v.SetDefault("journal.sslmode", "disable")
	v.SetDefault("journal.migrations_path", "migrations")
}

var validate = validator.New()

// Load builds the configuration from defaults, an optional config file and
// the environment, in increasing order of precedence. A missing file at path
// is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Reconnect.Strategy = strings.ToLower(strings.TrimSpace(cfg.Reconnect.Strategy))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Display.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (d DisplayConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("display timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

// Policy builds the reconnect delay policy. The fixed strategy waits Delay
// between attempts forever; the exponential one starts at Delay, doubles up
// to MaxDelay and never gives up.
func (r ReconnectConfig) Policy() backoff.BackOff {
	if r.Strategy != StrategyExponential {
		return backoff.NewConstantBackOff(r.Delay)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.Delay
	b.MaxInterval = r.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
