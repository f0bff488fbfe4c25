// Package config loads application settings from an optional YAML file and
// HAMPTON_* environment variables. Every setting has a default, so the tool
// runs without any configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hampton/progress-tracker/pkg/timeutil"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// EnvPrefix prefixes every environment variable, e.g. HAMPTON_STORE_DRIVER.
const EnvPrefix = "HAMPTON"

// Config holds all application configuration.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Store   StoreConfig   `mapstructure:"store"`
	Events  EventsConfig  `mapstructure:"events"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Content ContentConfig `mapstructure:"content"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Codec   CodecConfig   `mapstructure:"codec"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string      `mapstructure:"name"`
	Environment Environment `mapstructure:"environment"`

	// Timezone decides where a calendar day starts for streaks and daily
	// challenges. "Local" uses the machine timezone.
	Timezone string         `mapstructure:"timezone"`
	Location *time.Location `mapstructure:"-"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the durable progress store.
type StoreConfig struct {
	// Driver is file, bolt or sqlite.
	Driver string `mapstructure:"driver"`

	// Path overrides the store location derived from Dir.
	Path string `mapstructure:"path"`
	Dir  string `mapstructure:"dir"`

	// Key names the progress document inside bolt and sqlite.
	Key string `mapstructure:"key"`

	HistoryLimit int `mapstructure:"history_limit"`

	// SyncInterval is how often a running server checks the store for
	// changes made by other processes. Zero disables the check.
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

// EventsConfig controls outbound event delivery.
type EventsConfig struct {
	// RedisEnabled relays events through Redis pub/sub so a running server
	// sees changes made from the CLI.
	RedisEnabled bool   `mapstructure:"redis_enabled"`
	Channel      string `mapstructure:"channel"`

	// Async delivers to local subscribers from a worker pool.
	Async          bool `mapstructure:"async"`
	WorkerPoolSize int  `mapstructure:"worker_pool_size"`

	// StreamBuffer is the per-client buffer of the SSE stream.
	StreamBuffer int `mapstructure:"stream_buffer"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// ContentConfig selects where course material comes from.
// With neither Dir nor BaseURL set, generated defaults are served.
type ContentConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`

	// RateLimit is the maximum remote requests per second.
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// HTTPConfig holds the local API server settings.
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// SnapshotCache caches rendered progress documents in Redis.
	SnapshotCache bool `mapstructure:"snapshot_cache"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text

	// File enables a rotated log file in addition to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// CodecConfig controls progress code handling.
type CodecConfig struct {
	// StrictChecksum rejects imported codes whose checksum does not match.
	StrictChecksum bool `mapstructure:"strict_checksum"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:            "hampton",
			Environment:     EnvDevelopment,
			Timezone:        "Local",
			Location:        time.Local,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:       "file",
			Dir:          ".hampton",
			Key:          "hampton_progress",
			HistoryLimit: 500,
			SyncInterval: 30 * time.Second,
		},
		Events: EventsConfig{
			Channel:        "hampton:events",
			WorkerPoolSize: 4,
			StreamBuffer:   32,
		},
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        6379,
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
		},
		Content: ContentConfig{
			RateLimit: 5,
			Burst:     5,
			Timeout:   10 * time.Second,
		},
		HTTP: HTTPConfig{
			Host:         "127.0.0.1",
			Port:         8787,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // the event stream is long-lived
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Codec: CodecConfig{
			StrictChecksum: true,
		},
	}
}

// Load reads configuration. path names a config file; when empty,
// hampton.yaml is looked up in the working directory and in $HOME/.hampton,
// and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("hampton")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.hampton")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loc, err := timeutil.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app.timezone: %w", err)
	}
	cfg.App.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override
// values that no config file mentions.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.environment", string(d.App.Environment))
	v.SetDefault("app.timezone", d.App.Timezone)
	v.SetDefault("app.shutdown_timeout", d.App.ShutdownTimeout)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.key", d.Store.Key)
	v.SetDefault("store.history_limit", d.Store.HistoryLimit)
	v.SetDefault("store.sync_interval", d.Store.SyncInterval)

	v.SetDefault("events.redis_enabled", d.Events.RedisEnabled)
	v.SetDefault("events.channel", d.Events.Channel)
	v.SetDefault("events.async", d.Events.Async)
	v.SetDefault("events.worker_pool_size", d.Events.WorkerPoolSize)
	v.SetDefault("events.stream_buffer", d.Events.StreamBuffer)

	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)

	v.SetDefault("content.dir", d.Content.Dir)
	v.SetDefault("content.base_url", d.Content.BaseURL)
	v.SetDefault("content.rate_limit", d.Content.RateLimit)
	v.SetDefault("content.burst", d.Content.Burst)
	v.SetDefault("content.timeout", d.Content.Timeout)

	v.SetDefault("http.host", d.HTTP.Host)
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.snapshot_cache", d.HTTP.SnapshotCache)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)

	v.SetDefault("codec.strict_checksum", d.Codec.StrictChecksum)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	switch c.App.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Sprintf("app.environment must be development or production, got %q", c.App.Environment))
	}

	switch strings.ToLower(c.Store.Driver) {
	case "file", "bolt", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be file, bolt or sqlite, got %q", c.Store.Driver))
	}
	if c.Store.HistoryLimit < 0 {
		errs = append(errs, "store.history_limit must not be negative")
	}
	if c.Store.SyncInterval < 0 {
		errs = append(errs, "store.sync_interval must not be negative")
	}

	if c.Events.RedisEnabled && c.Events.Channel == "" {
		errs = append(errs, "events.channel is required when events.redis_enabled is set")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, "redis.port must be 1-65535")
	}

	if c.Content.Dir != "" && c.Content.BaseURL != "" {
		errs = append(errs, "content.dir and content.base_url are mutually exclusive")
	}
	if c.Content.RateLimit < 0 {
		errs = append(errs, "content.rate_limit must not be negative")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "http.port must be 1-65535")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}
