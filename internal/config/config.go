// Package config loads the daemon configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/TanveerShahriar/Thesis/internal/estimate"
	"github.com/TanveerShahriar/Thesis/internal/scheduler"
)

// DefaultListen is the default API listen address.
const DefaultListen = "127.0.0.1:7466"

// Config holds the daemon configuration.
type Config struct {
	// Listen is the API server address.
	Listen string `yaml:"listen"`
	// DB is the path to the SQLite catalog.
	DB string `yaml:"db"`
	// Manifest is an optional function manifest imported at startup.
	Manifest string `yaml:"manifest,omitempty"`

	// Pool fields sit at the top level of the file.
	Pool scheduler.Config `yaml:",inline"`

	Estimator estimate.Config `yaml:"estimator"`
}

// Dir returns ~/.spread, or .spread when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spread"
	}
	return filepath.Join(home, ".spread")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    DefaultListen,
		DB:        filepath.Join(Dir(), "spread.db"),
		Pool:      *scheduler.DefaultConfig(),
		Estimator: *estimate.DefaultConfig(),
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DB == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	return c.Estimator.Validate()
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromHome loads configuration from ~/.spread/config.yaml.
func LoadConfigFromHome() (*Config, error) {
	return LoadConfig(filepath.Join(Dir(), "config.yaml"))
}

// SaveConfig writes cfg to path, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
