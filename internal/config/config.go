// Package config loads CLI settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/HallyG/clientcerts/internal/export"
)

const DefaultPath = "clientcerts.yaml"

type Config struct {
	// Database is the SQLite file. Empty keeps certificates in memory.
	Database string `yaml:"database"`
	Export   Export `yaml:"export"`
	Log      Log    `yaml:"log"`
}

type Export struct {
	Dir             string                 `yaml:"dir"`
	Provider        string                 `yaml:"provider"`
	ProviderOptions export.ProviderOptions `yaml:"providerOptions"`
}

type Log struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Database: "clientcerts.db",
		Export: Export{
			Dir:      ".",
			Provider: export.ProviderFile,
		},
		Log: Log{
			Level: "info",
		},
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Export),
		validation.Field(&c.Log),
	)
}

func (e Export) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Provider, validation.Required, validation.In(export.ProviderFile, export.ProviderDrive)),
	)
}

func (l Log) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
	)
}

// Load reads path over the defaults. A missing file is only an error when
// required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// ParseLogLevel converts a level name to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
