// Package config loads the rating engine's hyperparameters and ops
// server settings from a YAML file, following the same
// struct-tag-driven loader shape the rest of this codebase's teacher
// material uses for its own YAML config.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/elommr/ratingengine/internal/ratings"
)

// EngineConfig is the on-disk shape of the engine's configuration
// file: the five rating hyperparameters plus the ops surfaces wired
// around the core.
type EngineConfig struct {
	Hyperparameters ratings.Hyperparameters `yaml:"hyperparameters"`
	HTTP            HTTPConfig              `yaml:"http"`
	Postgres        PostgresConfig          `yaml:"postgres"`
	Redis           RedisConfig             `yaml:"redis"`
}

// HTTPConfig configures the read-only query server.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// PostgresConfig configures the optional snapshot-persistence hook.
type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// RedisConfig configures the optional read-through ratings cache.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultEngineConfig returns a config using the engine's documented
// hyperparameter defaults, the HTTP query server enabled on
// 127.0.0.1:8080, and Postgres and Redis disabled.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Hyperparameters: ratings.DefaultHyperparameters(),
		HTTP:            HTTPConfig{Enabled: true, Host: "127.0.0.1", Port: 8080},
	}
}

// Load reads and parses an EngineConfig from path. Any field absent
// from the file keeps its DefaultEngineConfig value.
func Load(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read engine config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("failed to parse engine config YAML: %w", err)
	}

	if cfg.Hyperparameters == (ratings.Hyperparameters{}) {
		cfg.Hyperparameters = ratings.DefaultHyperparameters()
	}

	return cfg, nil
}
