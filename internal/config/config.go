package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverSupabase = "supabase"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	Env                string   `mapstructure:"env"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	// RateLimitPerMinute caps ingest requests per user; 0 disables the limit
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
	MaxBatchSize       int `mapstructure:"max_batch_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects where events and progress live
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// SupabaseConfig holds Supabase-specific configuration
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

// EngineConfig tunes metric computation
type EngineConfig struct {
	TrendWindowSize int           `mapstructure:"trend_window_size"`
	TrendThreshold  float64       `mapstructure:"trend_threshold"`
	DefaultTimezone string        `mapstructure:"default_timezone"`
	MaxFutureSkew   time.Duration `mapstructure:"max_future_skew"`
}

// CatalogConfig points at an achievement catalog file.
// An empty path uses the built-in catalog.
type CatalogConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Location resolves the default timezone
func (e EngineConfig) Location() (*time.Location, error) {
	return models.LoadLocation(e.DefaultTimezone)
}

// Load reads configuration from .env, environment variables and an optional
// YAML file. configFile overrides the search for config.yaml in . and ./config.
func Load(configFile string) (*Config, error) {
	// A missing .env is fine; a malformed one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ENGAGEMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by hosting platforms and Supabase tooling
	v.BindEnv("server.port", "ENGAGEMENT_SERVER_PORT", "PORT")
	v.BindEnv("supabase.url", "ENGAGEMENT_SUPABASE_URL", "SUPABASE_URL")
	v.BindEnv("supabase.service_key", "ENGAGEMENT_SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")

		// It's okay if config file doesn't exist
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.cors_allowed_origins", []string{})
	v.SetDefault("server.rate_limit_per_minute", 300)
	v.SetDefault("server.max_batch_size", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.sqlite_path", "engagement.db")

	v.SetDefault("engine.trend_window_size", 7)
	v.SetDefault("engine.trend_threshold", 0.5)
	v.SetDefault("engine.default_timezone", "UTC")
	v.SetDefault("engine.max_future_skew", "24h")

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.watch", false)
}

// Validate checks that configuration values are present and consistent
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverSupabase:
		if c.Supabase.URL == "" {
			return fmt.Errorf("SUPABASE_URL is required for the supabase driver")
		}
		if c.Supabase.ServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required for the supabase driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want %s, %s or %s)", c.Storage.Driver, DriverMemory, DriverSQLite, DriverSupabase)
	}

	if c.Engine.TrendWindowSize <= 0 {
		return fmt.Errorf("engine.trend_window_size must be positive, got %d", c.Engine.TrendWindowSize)
	}
	if c.Engine.TrendThreshold <= 0 {
		return fmt.Errorf("engine.trend_threshold must be positive, got %v", c.Engine.TrendThreshold)
	}
	if c.Engine.MaxFutureSkew < 0 {
		return fmt.Errorf("engine.max_future_skew must not be negative, got %v", c.Engine.MaxFutureSkew)
	}
	if _, err := c.Engine.Location(); err != nil {
		return fmt.Errorf("engine.default_timezone: %w", err)
	}

	if c.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("server.max_batch_size must be positive, got %d", c.Server.MaxBatchSize)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must not be negative, got %d", c.Server.RateLimitPerMinute)
	}

	if c.Catalog.Watch && c.Catalog.Path == "" {
		return fmt.Errorf("catalog.watch requires catalog.path")
	}
	return nil
}
