package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
channel_id: UCtest123
keywords:
  - politics
  - election
language: en
rate_limit_per_minute: 10
max_retries: 5
workers: 2
max_videos: 50
output_path: /tmp/transcripts
index:
  driver: sqlite
  sqlite_path: /tmp/transcripts.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ChannelID != "UCtest123" {
		t.Errorf("Unexpected channel id: %q", cfg.ChannelID)
	}
	if len(cfg.Keywords) != 2 || cfg.Keywords[0] != "politics" {
		t.Errorf("Unexpected keywords: %v", cfg.Keywords)
	}
	if cfg.RateLimitPerMinute != 10 || cfg.MaxRetries != 5 || cfg.Workers != 2 {
		t.Errorf("Unexpected limits: %+v", cfg)
	}
	// Unset fields fall back to defaults.
	if cfg.StatsPath != Default().StatsPath {
		t.Errorf("Expected default stats path, got %q", cfg.StatsPath)
	}
}

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	path := writeConfig(t, "channel_id: UCtest123\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	def := Default()
	if cfg.RateLimitPerMinute != def.RateLimitPerMinute {
		t.Errorf("Expected default rate limit, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.Language != def.Language {
		t.Errorf("Expected default language, got %q", cfg.Language)
	}
	if cfg.Index.Driver != "sqlite" || cfg.Index.SQLitePath == "" {
		t.Errorf("Expected default index config, got %+v", cfg.Index)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected a minimal config to validate: %v", err)
	}
}

func TestLoad_ExplicitZeroRetries(t *testing.T) {
	path := writeConfig(t, "channel_id: UCtest123\nmax_retries: 0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("An explicit zero must not be replaced by the default, got %d", cfg.MaxRetries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "channel_id: [unclosed\n")
	_, err := Load(path)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.ChannelID = "UCtest123"

	if err := base.Validate(); err != nil {
		t.Fatalf("Expected a valid config: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing channel", func(c *Config) { c.ChannelID = "" }},
		{"zero rate", func(c *Config) { c.RateLimitPerMinute = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"missing output", func(c *Config) { c.OutputPath = "" }},
		{"unknown driver", func(c *Config) { c.Index.Driver = "oracle" }},
		{"sqlite without path", func(c *Config) { c.Index.SQLitePath = "" }},
		{"postgres without dsn", func(c *Config) { c.Index = IndexConfig{Driver: "postgres"} }},
	}

	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
			continue
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: expected ErrConfiguration, got %v", tc.name, err)
		}
	}
}

func TestValidate_ZeroRetriesIsAllowed(t *testing.T) {
	cfg := Default()
	cfg.ChannelID = "UCtest123"
	cfg.MaxRetries = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected zero retries to be valid: %v", err)
	}
}
