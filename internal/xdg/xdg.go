// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package xdg resolves XDG Base Directory paths for recordgate. Directories
// are created with private permissions when missing.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "recordgate"

// ConfigDir returns $XDG_CONFIG_HOME/recordgate, falling back to
// ~/.config/recordgate.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/recordgate, falling back to
// ~/.local/state/recordgate. The default SQLite database lives here.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func ensure(env, homeRel string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
