package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port                   int `mapstructure:"port"`                     // HTTP server port (default: 8080)
		ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"` // Grace period for in-flight requests
	} `mapstructure:"server"`

	// Database configuration section, SQLite by default or PostgreSQL
	Database struct {
		Driver          string `mapstructure:"driver"`           // "sqlite" or "postgres"
		DSN             string `mapstructure:"dsn"`              // SQLite file name or PostgreSQL DSN
		ConnectAttempts int    `mapstructure:"connect_attempts"` // Attempts before giving up at startup
	} `mapstructure:"database"`

	// GeoIP configuration for the best-effort geolocation lookup
	GeoIP struct {
		BaseURL            string `mapstructure:"base_url"`             // Lookup service root, e.g. https://ipapi.co
		TimeoutSeconds     int    `mapstructure:"timeout_seconds"`      // Upper bound for one lookup
		RequestsPerMinute  int    `mapstructure:"requests_per_minute"`  // Outbound budget, 0 disables the limiter
		BreakerFailures    int    `mapstructure:"breaker_failures"`     // Consecutive failures before the breaker opens
		BreakerOpenSeconds int    `mapstructure:"breaker_open_seconds"` // Time the breaker stays open
	} `mapstructure:"geoip"`

	// Log configuration for the zerolog global logger
	Log struct {
		Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
		Format string `mapstructure:"format"` // json or console
	} `mapstructure:"log"`

	// Admin configuration for out-of-band maintenance operations
	Admin struct {
		EnableReset bool `mapstructure:"enable_reset"` // Exposes GET /api/init when true
	} `mapstructure:"admin"`

	// Monitor configuration for the lookup service health check
	Monitor struct {
		IntervalMinutes int `mapstructure:"interval_minutes"` // Minutes between checks, 0 disables the monitor
	} `mapstructure:"monitor"`
}

// GeoTimeout returns the lookup timeout as a duration.
func (c *Config) GeoTimeout() time.Duration {
	return time.Duration(c.GeoIP.TimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown window as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// MonitorInterval returns the monitor period, zero when the monitor is disabled.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMinutes) * time.Minute
}

// setDefaults registers the default value of every configuration key.
// These are used if no config file is found or if specific keys are missing.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "visitors.db")
	v.SetDefault("database.connect_attempts", 5)
	v.SetDefault("geoip.base_url", "https://ipapi.co")
	v.SetDefault("geoip.timeout_seconds", 3)
	v.SetDefault("geoip.requests_per_minute", 30)
	v.SetDefault("geoip.breaker_failures", 5)
	v.SetDefault("geoip.breaker_open_seconds", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("admin.enable_reset", true)
	v.SetDefault("monitor.interval_minutes", 5)
}

// LoadConfig loads the application configuration from ./configs/config.yaml.
// See LoadConfigFrom.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("./configs")
}

// LoadConfigFrom loads the application configuration using Viper.
// A .env file in the working directory is loaded first when present, then
// environment variables override the YAML file ("server.port" becomes "SERVER_PORT").
func LoadConfigFrom(dir string) (*Config, error) {
	// A missing .env file is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, customerrors.ErrConfigLoad{Path: dir, Reason: err.Error()}
		}
		logging.Info().Str("path", dir).Msg("Config file not found, using default values")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, customerrors.ErrConfigLoad{Path: dir, Reason: err.Error()}
	}

	logging.Debug().
		Int("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Str("geoip_base_url", cfg.GeoIP.BaseURL).
		Int("monitor_interval_minutes", cfg.Monitor.IntervalMinutes).
		Msg("Configuration loaded")

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: %q", customerrors.ErrUnsupportedDriver, c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.GeoIP.TimeoutSeconds <= 0 {
		return fmt.Errorf("geoip.timeout_seconds must be positive")
	}
	if c.Monitor.IntervalMinutes < 0 {
		return fmt.Errorf("monitor.interval_minutes must not be negative")
	}
	return nil
}
