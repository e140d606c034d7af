package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks configuration problems that are fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// IndexConfig selects the segment index backend.
type IndexConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string for the postgres driver.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Config holds everything a collection run needs. Values left zero fall
// back to defaults; flags may override individual fields after loading.
type Config struct {
	// ChannelID is the YouTube channel whose uploads are collected.
	ChannelID string `yaml:"channel_id"`

	// Keywords filters discovered videos by title. Empty means keep all.
	Keywords []string `yaml:"keywords"`

	// Language is the caption language code requested from the remote
	// service.
	Language string `yaml:"language"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	MaxRetries         int `yaml:"max_retries"`
	Workers            int `yaml:"workers"`

	// MaxVideos caps how many discovered videos are collected per run.
	// <= 0 means no limit.
	MaxVideos int `yaml:"max_videos"`

	// OutputPath is the transcript store directory.
	OutputPath string `yaml:"output_path"`

	// StatsPath is where collection statistics are written.
	StatsPath string `yaml:"stats_path"`

	Index IndexConfig `yaml:"index"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Language:           "en",
		RateLimitPerMinute: 30,
		MaxRetries:         3,
		Workers:            1,
		MaxVideos:          100,
		OutputPath:         "data/transcripts",
		StatsPath:          "data/collection_stats.json",
		Index: IndexConfig{
			Driver:     "sqlite",
			SQLitePath: "data/transcripts.db",
		},
	}
}

// Load reads a YAML config file and applies defaults for unset fields.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", ErrConfiguration, path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = def.RateLimitPerMinute
	}
	// MaxRetries is not defaulted here: zero is a legal value meaning
	// "single attempt", and Load already seeds from Default().
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.OutputPath == "" {
		c.OutputPath = def.OutputPath
	}
	if c.StatsPath == "" {
		c.StatsPath = def.StatsPath
	}
	if c.Index.Driver == "" {
		c.Index.Driver = def.Index.Driver
	}
	if c.Index.Driver == "sqlite" && c.Index.SQLitePath == "" {
		c.Index.SQLitePath = def.Index.SQLitePath
	}
}

// Validate checks the configuration before a run starts. All problems it
// reports wrap ErrConfiguration and are fatal.
func (c Config) Validate() error {
	if c.ChannelID == "" {
		return fmt.Errorf("%w: channel_id is required", ErrConfiguration)
	}
	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("%w: rate_limit_per_minute must be >= 1, got %d", ErrConfiguration, c.RateLimitPerMinute)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0, got %d", ErrConfiguration, c.MaxRetries)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrConfiguration, c.Workers)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: output_path is required", ErrConfiguration)
	}

	switch c.Index.Driver {
	case "sqlite":
		if c.Index.SQLitePath == "" {
			return fmt.Errorf("%w: index.sqlite_path is required for the sqlite driver", ErrConfiguration)
		}
	case "postgres":
		if c.Index.PostgresDSN == "" {
			return fmt.Errorf("%w: index.postgres_dsn is required for the postgres driver", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown index driver %q", ErrConfiguration, c.Index.Driver)
	}

	return nil
}
