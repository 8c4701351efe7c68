// Package config provides configuration loading and structs for the emojicache server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Key strategies for new clusters.
const (
	KeyStrategyDerived = "derived" // content-derived hash of the compressed vector prefix
	KeyStrategyRandom  = "random"  // opaque key generated at insertion time
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Provider ProviderConfig `yaml:"provider"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CacheConfig holds cluster store and lookup settings.
type CacheConfig struct {
	// StorePath is the cluster store blob on disk.
	StorePath string `yaml:"store_path"`
	// Threshold is the minimum cosine similarity for a cache hit. Higher
	// values demand a closer semantic match before reuse; useful values sit
	// roughly between 0.68 and 0.85.
	Threshold float64 `yaml:"threshold"`
	// KeyStrategy is "derived" or "random".
	KeyStrategy string `yaml:"key_strategy"`
	// KeyPrefix is how many leading vector components feed the derived key.
	KeyPrefix int `yaml:"key_prefix"`
}

// ProviderConfig holds Gemini settings for embedding and generation.
type ProviderConfig struct {
	// APIKey falls back to $GEMINI_API_KEY when unset.
	APIKey         string `yaml:"api_key"`
	EmbedModel     string `yaml:"embed_model"`
	GenerateModel  string `yaml:"generate_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load reads and parses the config file at path, applies defaults, expands
// paths, and validates. Returns an error if the file cannot be read or
// parsed, or a value is out of range.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Cache.StorePath = expandPath(cfg.Cache.StorePath, configDir)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config values that have a bounded valid range.
func Validate(cfg *Config) error {
	if cfg.Cache.Threshold <= 0 || cfg.Cache.Threshold >= 1 {
		return fmt.Errorf("cache.threshold must be in (0, 1), got %v", cfg.Cache.Threshold)
	}
	switch cfg.Cache.KeyStrategy {
	case KeyStrategyDerived, KeyStrategyRandom:
	default:
		return fmt.Errorf("cache.key_strategy must be %q or %q, got %q",
			KeyStrategyDerived, KeyStrategyRandom, cfg.Cache.KeyStrategy)
	}
	if cfg.Cache.KeyPrefix <= 0 {
		return fmt.Errorf("cache.key_prefix must be positive, got %d", cfg.Cache.KeyPrefix)
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("provider.timeout_seconds must be positive, got %d", cfg.Provider.TimeoutSeconds)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
