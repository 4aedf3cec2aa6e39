package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds session manager configuration.
type Config struct {
	// DataDir is the directory holding one database file per session.
	DataDir string `yaml:"data_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{DataDir: ".agentfs"}
}

// LoadConfig reads a yaml config file. Fields not present keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		return Config{}, fmt.Errorf("config %s: data_dir must not be empty", path)
	}
	return cfg, nil
}
