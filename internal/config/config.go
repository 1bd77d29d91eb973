package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// RelayConfig configures the HTTP relay in front of the provider.
type RelayConfig struct {
	// Provider
	OpenRouterKey string `env:"OPENROUTER_API_KEY"`
	BaseURL       string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	Model         string `env:"CHAT_MODEL" envDefault:"openai/gpt-4o-mini"`
	SystemPrompt  string `env:"SYSTEM_PROMPT"`

	// Server
	Port               int `env:"PORT" envDefault:"3000"`
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// ClientConfig configures the terminal chat client.
type ClientConfig struct {
	RelayURL    string `env:"MINDCHAT_RELAY_URL" envDefault:"http://localhost:3000"`
	StoreDriver string `env:"MINDCHAT_STORE_DRIVER" envDefault:"file"`
	StorePath   string `env:"MINDCHAT_STORE_PATH"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

func LoadRelay() (*RelayConfig, error) {
	cfg := &RelayConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that env parsing cannot. It is run again after
// command-line overrides are applied.
func (c *ClientConfig) Validate() error {
	switch c.StoreDriver {
	case StoreDriverFile, StoreDriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if strings.TrimSpace(c.RelayURL) == "" {
		return errors.New("relay URL is empty")
	}
	return nil
}

// APIKeyConfigured reports whether the provider credential is present.
func (c *RelayConfig) APIKeyConfigured() bool {
	return strings.TrimSpace(c.OpenRouterKey) != ""
}

func (c *RelayConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ResolveStorePath returns StorePath, or the default location under the
// user's home directory for the configured driver.
func (c *ClientConfig) ResolveStorePath() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	name := DefaultFileStoreName
	if c.StoreDriver == StoreDriverSQLite {
		name = DefaultSQLiteStoreName
	}
	return filepath.Join(home, DefaultStoreDir, name), nil
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
