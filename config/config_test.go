package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "Asia/Tokyo", cfg.Calendar.DefaultTimezone)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: A YAML file and an environment override for one of its keys
	path := writeConfig(t, `
server:
  port: 9000
  db: ":memory:"
calendar:
  default_timezone: America/New_York
comparator:
  url: http://compare.local
  timeout: 2s
`)
	t.Setenv("TRASH_SERVER_PORT", "9100")
	t.Setenv("TRASH_COMPARATOR_API_KEY", "secret")
	t.Setenv("TRASH_NATS_URL", "nats://127.0.0.1:4222")

	// WHEN: Loading
	cfg, err := Load(path)

	// THEN: Env wins over the file, the file wins over defaults
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Server.DB)
	assert.Equal(t, "America/New_York", cfg.Calendar.DefaultTimezone)
	assert.Equal(t, "http://compare.local", cfg.Comparator.URL)
	assert.Equal(t, "secret", cfg.Comparator.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Comparator.Timeout)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "ja-JP", cfg.Calendar.Locale)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	path := writeConfig(t, "calendar:\n  default_timezone: Nowhere/Town\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "default_timezone")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"db", func(c *Config) { c.Server.DB = "" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
		{"interval", func(c *Config) { c.Scheduler.Interval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
