package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/HallyG/clientcerts/internal/config"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clientcerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing optional file returns defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
		require.NoError(t, err)
		require.Equal(t, config.Default(), cfg)
	})

	t.Run("returns error when required file missing", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
		require.ErrorContains(t, err, "read config")
	})

	t.Run("overrides defaults", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
database: /var/lib/clientcerts/certs.db
export:
  dir: /tmp/exports
  providerOptions:
    parents: ["My Drive"]
log:
  level: debug
`)

		cfg, err := config.Load(path, true)
		require.NoError(t, err)
		require.Equal(t, "/var/lib/clientcerts/certs.db", cfg.Database)
		require.Equal(t, "/tmp/exports", cfg.Export.Dir)
		require.Equal(t, "file", cfg.Export.Provider)
		require.Equal(t, []string{"My Drive"}, cfg.Export.ProviderOptions.Parents)
		require.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("returns error when provider unknown", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "export:\n  provider: s3\n")

		_, err := config.Load(path, true)
		require.ErrorContains(t, err, "Provider: must be a valid value")
	})

	t.Run("returns error when level unknown", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "log:\n  level: loud\n")

		_, err := config.Load(path, true)
		require.ErrorContains(t, err, "Level: must be a valid value")
	})

	t.Run("returns error when yaml malformed", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "export: [\n")

		_, err := config.Load(path, true)
		require.ErrorContains(t, err, "parse config")
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, expected, config.ParseLogLevel(input))
		})
	}
}
