// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutordesk Contributors

// Package xdg resolves the per-user paths tutordesk reads and writes.
//
// Configuration follows the XDG Base Directory layout. The session file lives
// in a dot directory directly under $HOME so every tutordesk process run by
// the same OS user finds the same login.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName = "tutordesk"

	// SessionDirName is the dot directory under $HOME holding the session file.
	SessionDirName = ".tutordesk"
	// SessionFileName is the name of the persisted login file.
	SessionFileName = "session.json"
	// ConfigFileName is the name of the YAML config file inside ConfigDir.
	ConfigFileName = "config.yaml"
)

// HomeDir returns $HOME, or the platform home directory when HOME is unset.
func HomeDir() (string, error) {
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_NO_HOME").Wrapf(err, "cannot determine home directory")
	}
	return home, nil
}

// ConfigDir returns the XDG config directory for tutordesk.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// SessionFile returns the default session file path, ~/.tutordesk/session.json.
func SessionFile() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, SessionDirName, SessionFileName), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := HomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, appName), nil
}
