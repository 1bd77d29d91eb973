package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadRelay_Defaults(t *testing.T) {
	unsetenv(t, "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "PORT", "RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadRelay()
	require.NoError(t, err)

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.BaseURL)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.False(t, cfg.APIKeyConfigured())
}

func TestLoadRelay_Overrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("PORT", "8080")
	t.Setenv("CHAT_MODEL", "anthropic/claude-3-haiku")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")

	cfg, err := LoadRelay()
	require.NoError(t, err)

	assert.True(t, cfg.APIKeyConfigured())
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "anthropic/claude-3-haiku", cfg.Model)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
}

func TestLoadRelay_BadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")

	_, err := LoadRelay()
	assert.ErrorContains(t, err, "parse config")
}

func TestAPIKeyConfigured_Whitespace(t *testing.T) {
	cfg := &RelayConfig{OpenRouterKey: "   "}
	assert.False(t, cfg.APIKeyConfigured())
}

func TestLoadClient(t *testing.T) {
	unsetenv(t, "MINDCHAT_RELAY_URL", "MINDCHAT_STORE_DRIVER")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.RelayURL)
	assert.Equal(t, StoreDriverFile, cfg.StoreDriver)

	t.Setenv("MINDCHAT_STORE_DRIVER", "postgres")
	_, err = LoadClient()
	assert.ErrorContains(t, err, `unknown store driver "postgres"`)
}

func TestClientConfig_Validate(t *testing.T) {
	assert.NoError(t, (&ClientConfig{RelayURL: "http://x", StoreDriver: StoreDriverSQLite}).Validate())
	assert.Error(t, (&ClientConfig{RelayURL: " ", StoreDriver: StoreDriverFile}).Validate())
}

func TestResolveStorePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &ClientConfig{StoreDriver: StoreDriverFile}
	p, err := cfg.ResolveStorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultStoreDir, DefaultFileStoreName), p)

	cfg.StoreDriver = StoreDriverSQLite
	p, err = cfg.ResolveStorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultStoreDir, DefaultSQLiteStoreName), p)

	cfg.StorePath = "/tmp/chats.db"
	p, err = cfg.ResolveStorePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/chats.db", p)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}
