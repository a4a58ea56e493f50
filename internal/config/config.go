package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all mailboard configuration.
type Config struct {
	Gmail    GmailConfig    `toml:"gmail"`
	GenAI    GenAIConfig    `toml:"genai"`
	Ingest   IngestConfig   `toml:"ingest"`
	Accounts AccountsConfig `toml:"accounts"`
	Log      LogConfig      `toml:"log"`
}

// GmailConfig holds Gmail OAuth credentials and the Pub/Sub topic that
// receives push notifications.
// Users can override the defaults via config file or env vars.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	PubSubTopic  string `toml:"pubsub_topic"`
}

// GenAIConfig holds the generation-service endpoint settings.
type GenAIConfig struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	MaxRetries  int     `toml:"max_retries"`
}

// IngestConfig holds ingestion and renewal scheduling settings.
type IngestConfig struct {
	Lookback     string `toml:"lookback"`
	RenewWithin  string `toml:"renew_within"`
	DraftReplies bool   `toml:"draft_replies"`
}

// AccountsConfig holds account selection settings.
type AccountsConfig struct {
	Default string `toml:"default"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

func defaults() Config {
	return Config{
		GenAI: GenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			MaxTokens:  2048,
			MaxRetries: 3,
		},
		Ingest: IngestConfig{
			Lookback:     "24h",
			RenewWithin:  "24h",
			DraftReplies: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads config from path. If path is empty, returns defaults.
// The GenAI API key falls back to the MAILBOARD_GENAI_API_KEY env var
// when not set in the file.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return applyEnv(&cfg), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(&cfg), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return applyEnv(&cfg), nil
}

func applyEnv(cfg *Config) *Config {
	if cfg.GenAI.APIKey == "" {
		cfg.GenAI.APIKey = os.Getenv("MAILBOARD_GENAI_API_KEY")
	}
	if cfg.Gmail.PubSubTopic == "" {
		cfg.Gmail.PubSubTopic = os.Getenv("MAILBOARD_PUBSUB_TOPIC")
	}
	return cfg
}

// ConfigDir returns the mailboard config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mailboard")
}

// DataDir returns the mailboard data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mailboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mailboard")
}
