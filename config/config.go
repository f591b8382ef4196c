// Package config loads service configuration from a YAML file and
// TRASH_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix         = "TRASH_"
	maxConfigFileSize = 1024 * 1024
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Calendar   CalendarConfig   `koanf:"calendar"`
	Comparator ComparatorConfig `koanf:"comparator"`
	NATS       NATSConfig       `koanf:"nats"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	DB             string   `koanf:"db"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

type CalendarConfig struct {
	// DefaultTimezone applies when a request names no zone.
	DefaultTimezone string `koanf:"default_timezone"`
	Locale          string `koanf:"locale"`
}

type ComparatorConfig struct {
	URL       string        `koanf:"url"`
	APIKey    string        `koanf:"api_key"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	Burst     int           `koanf:"burst"`
}

type NATSConfig struct {
	// URL is empty when reminders are only logged.
	URL string `koanf:"url"`
}

type SchedulerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			DB:             "trash.db",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Log:        LogConfig{Level: "info", Format: "json"},
		Calendar:   CalendarConfig{DefaultTimezone: "Asia/Tokyo", Locale: "ja-JP"},
		Comparator: ComparatorConfig{Timeout: 5 * time.Second, RateLimit: 10, Burst: 5},
		Scheduler:  SchedulerConfig{Enabled: true, Interval: time.Hour},
	}
}

// Load reads the YAML file at path, when given, then applies environment
// overrides.
//
// Precedence (highest first):
//  1. Environment variables (TRASH_SERVER_PORT, TRASH_COMPARATOR_API_KEY, ...)
//  2. YAML file
//  3. Default()
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// TRASH_SERVER_PORT -> server.port, TRASH_COMPARATOR_API_KEY -> comparator.api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	origins := cfg.Server.AllowedOrigins
	cfg.Server.AllowedOrigins = nil
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = origins
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.DB == "" {
		return fmt.Errorf("server.db is required")
	}
	if _, err := time.LoadLocation(c.Calendar.DefaultTimezone); err != nil {
		return fmt.Errorf("calendar.default_timezone: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	return nil
}
