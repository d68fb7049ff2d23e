// Package config provides configuration management for evolvd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sitelore/evolvd/internal/evolution"
	"github.com/sitelore/evolvd/internal/feedback"
	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/internal/llm"
	"github.com/sitelore/evolvd/internal/notify"
)

const (
	// DefaultPort is the default HTTP port for the evolvd service.
	DefaultPort = 37710

	// DefaultAggregationSpec runs hourly aggregation at the top of the hour.
	DefaultAggregationSpec = "0 * * * *"
	// DefaultEvolutionSpec runs the evolution cycle daily at 03:00 UTC.
	DefaultEvolutionSpec = "0 3 * * *"
)

// Config holds the application configuration.
type Config struct {
	// HTTP settings
	Port int `yaml:"port"`
	// SharedSecret guards mutating API routes when non-empty.
	SharedSecret string `yaml:"shared_secret"`

	// Schedule settings (cron expressions, UTC)
	AggregationSpec string `yaml:"aggregation_spec"`
	EvolutionSpec   string `yaml:"evolution_spec"`

	Redis      kv.RedisConfig   `yaml:"redis"`
	Generation llm.Config       `yaml:"generation"`
	Evolution  evolution.Config `yaml:"evolution"`
	Notify     notify.Config    `yaml:"notify"`
	Lexicon    feedback.Lexicon `yaml:"lexicon"`
}

// DataDir returns the data directory path (~/.evolvd).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".evolvd")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Port:            DefaultPort,
		AggregationSpec: DefaultAggregationSpec,
		EvolutionSpec:   DefaultEvolutionSpec,
		Redis:           kv.DefaultRedisConfig(),
		Generation:      llm.DefaultConfig(),
		Evolution:       evolution.DefaultConfig(),
		Notify:          notify.DefaultConfig(),
		Lexicon:         feedback.DefaultLexicon(),
	}
}

// Load reads the settings file at path (SettingsPath when empty), merges
// it over defaults, then applies environment overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = SettingsPath()
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. Environment wins
// over both defaults and the settings file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("EVOLVD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	if v := os.Getenv("EVOLVD_SHARED_SECRET"); v != "" {
		cfg.SharedSecret = v
	}
	if v := os.Getenv("EVOLVD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("EVOLVD_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("EVOLVD_GENERATION_BASE_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v := os.Getenv("EVOLVD_GENERATION_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("EVOLVD_GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("EVOLVD_GENERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Generation.Timeout = d
		}
	}
	if v := os.Getenv("EVOLVD_NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
}
