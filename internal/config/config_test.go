package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
cache:
  store_path: "./data/clusters.json"
  threshold: 0.8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Cache.Threshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", cfg.Cache.Threshold)
	}
	if !filepath.IsAbs(cfg.Cache.StorePath) {
		t.Errorf("store_path should be absolute, got %s", cfg.Cache.StorePath)
	}
	if !strings.HasPrefix(cfg.Cache.StorePath, filepath.Dir(path)) {
		t.Errorf("./ path should expand relative to config dir, got %s", cfg.Cache.StorePath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_defaults(t *testing.T) {
	path := writeConfig(t, "{}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Cache.Threshold != 0.68 {
		t.Errorf("threshold default = %v, want 0.68", cfg.Cache.Threshold)
	}
	if cfg.Cache.KeyStrategy != KeyStrategyDerived {
		t.Errorf("key_strategy default = %q", cfg.Cache.KeyStrategy)
	}
	if cfg.Cache.KeyPrefix != 64 {
		t.Errorf("key_prefix default = %d", cfg.Cache.KeyPrefix)
	}
	if cfg.Provider.EmbedModel != "text-embedding-004" {
		t.Errorf("embed_model default = %q", cfg.Provider.EmbedModel)
	}
	if cfg.Provider.GenerateModel != "gemini-2.0-flash" {
		t.Errorf("generate_model default = %q", cfg.Provider.GenerateModel)
	}
	if cfg.Provider.TimeoutSeconds != 30 {
		t.Errorf("timeout default = %d", cfg.Provider.TimeoutSeconds)
	}
}

func TestLoad_apiKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key-from-env")
	path := writeConfig(t, "{}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "test-key-from-env" {
		t.Errorf("api_key = %q, want env fallback", cfg.Provider.APIKey)
	}
}

func TestLoad_invalidThreshold(t *testing.T) {
	for _, th := range []string{"1.5", "-0.2", "1"} {
		path := writeConfig(t, "cache:\n  threshold: "+th+"\n")
		if _, err := Load(path); err == nil {
			t.Errorf("threshold %s should be rejected", th)
		}
	}
}

func TestLoad_invalidKeyStrategy(t *testing.T) {
	path := writeConfig(t, "cache:\n  key_strategy: \"sequential\"\n")
	if _, err := Load(path); err == nil {
		t.Error("unknown key_strategy should be rejected")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestLoad_malformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map\n")
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should error")
	}
}
