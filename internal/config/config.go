// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Package config loads tutordesk settings from a YAML file and command-line
// flags. Flags that were set explicitly win over the file; the file wins over
// flag defaults.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/tutordesk/tutordesk/internal/logging"
	"github.com/tutordesk/tutordesk/internal/xdg"
)

// Keys shared by the YAML file and the flag set.
const (
	KeyDatabaseURL = "database-url"
	KeySessionFile = "session-file"
	KeyLogFormat   = "log-format"
	KeyLogLevel    = "log-level"
)

// DatabaseURLEnv is consulted when database-url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

const (
	defaultLogFormat = logging.FormatText
	defaultLogLevel  = "warn"
)

// Config is the resolved configuration for one tutordesk process.
type Config struct {
	DatabaseURL string `koanf:"database-url"`
	SessionFile string `koanf:"session-file"`
	LogFormat   string `koanf:"log-format"`
	LogLevel    string `koanf:"log-level"`
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyDatabaseURL, "", "PostgreSQL connection URL (default: $"+DatabaseURLEnv+")")
	fs.String(KeySessionFile, "", "session file path (default: ~/.tutordesk/session.json)")
	fs.String(KeyLogFormat, defaultLogFormat, "log format (json or text)")
	fs.String(KeyLogLevel, defaultLogLevel, "log level (debug, info, warn, error)")
}

// Load reads path (or the default config file when path is empty), overlays
// the flags in fs, fills remaining gaps from the environment and validates
// the result. A missing default file is not an error; a missing explicit one is.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		p, err := xdg.ConfigFile()
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrap(err)
		}
		path = p
	}

	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("source", "flags").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return oops.Code("CONFIG_NOT_FOUND").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(DatabaseURLEnv)
	}
	if c.SessionFile == "" {
		p, err := xdg.SessionFile()
		if err != nil {
			return oops.Code("CONFIG_INVALID").Wrap(err)
		}
		c.SessionFile = p
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !logging.ValidFormat(c.LogFormat) {
		return oops.Code("CONFIG_INVALID").With("key", KeyLogFormat).
			Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", KeyLogLevel).
			Errorf("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.SessionFile == "" {
		return oops.Code("CONFIG_INVALID").With("key", KeySessionFile).Errorf("session-file is required")
	}
	return nil
}

// Level returns the parsed log level, falling back to warn.
func (c *Config) Level() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// RequireDatabase returns an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("key", KeyDatabaseURL).
			Errorf("database-url is not configured and %s is not set", DatabaseURLEnv)
	}
	return nil
}
