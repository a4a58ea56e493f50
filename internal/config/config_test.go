package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GenAI.Model != "gpt-4o-mini" {
		t.Errorf("default model = %q, want %q", cfg.GenAI.Model, "gpt-4o-mini")
	}
	if cfg.GenAI.MaxRetries != 3 {
		t.Errorf("default max_retries = %d, want 3", cfg.GenAI.MaxRetries)
	}
	if cfg.Ingest.Lookback != "24h" {
		t.Errorf("default lookback = %q, want %q", cfg.Ingest.Lookback, "24h")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := `
[gmail]
client_id = "cid"
pubsub_topic = "mail-events"

[genai]
model = "gpt-4o"
max_retries = 5

[ingest]
lookback = "72h"
draft_replies = false
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gmail.PubSubTopic != "mail-events" {
		t.Errorf("pubsub_topic = %q, want %q", cfg.Gmail.PubSubTopic, "mail-events")
	}
	if cfg.GenAI.Model != "gpt-4o" {
		t.Errorf("model = %q, want %q", cfg.GenAI.Model, "gpt-4o")
	}
	if cfg.Ingest.DraftReplies {
		t.Error("draft_replies should be false")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load() should return defaults for missing file, got error: %v", err)
	}
	if cfg.GenAI.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want default", cfg.GenAI.Model)
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("MAILBOARD_GENAI_API_KEY", "sk-test")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GenAI.APIKey != "sk-test" {
		t.Errorf("api_key = %q, want env fallback", cfg.GenAI.APIKey)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "mailboard") {
		t.Errorf("ConfigDir() = %q", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	if got := ConfigDir(); !strings.HasSuffix(got, filepath.Join(".config", "mailboard")) {
		t.Errorf("ConfigDir() = %q, want ~/.config/mailboard", got)
	}
}
