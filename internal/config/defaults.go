package config

import "os"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Cache.StorePath == "" {
		cfg.Cache.StorePath = "/usr/local/var/emojicache/data/clusters.json"
	}
	if cfg.Cache.Threshold == 0 {
		cfg.Cache.Threshold = 0.68
	}
	if cfg.Cache.KeyStrategy == "" {
		cfg.Cache.KeyStrategy = KeyStrategyDerived
	}
	if cfg.Cache.KeyPrefix == 0 {
		cfg.Cache.KeyPrefix = 64
	}
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Provider.EmbedModel == "" {
		cfg.Provider.EmbedModel = "text-embedding-004"
	}
	if cfg.Provider.GenerateModel == "" {
		cfg.Provider.GenerateModel = "gemini-2.0-flash"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
}
