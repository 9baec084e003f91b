// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to the OS keychain.
// Environment variables override the file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"recordgate/cli/internal/dsn"
	"recordgate/cli/internal/xdg"
)

// Backend kinds.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRemote   = "remote"
)

// Environment variables read by ApplyEnv.
const (
	EnvDSN         = "RECORDGATE_DSN"
	EnvDatabaseURL = "DATABASE_URL"
	EnvAddr        = "RECORDGATE_ADDR"
	EnvToken       = "RECORDGATE_TOKEN"
	EnvLogLevel    = "RECORDGATE_LOG_LEVEL"
)

// Defaults.
const (
	DefaultLogLevel = "info"
	DefaultListen   = ":7070"
	dbFileName      = "recordgate.db"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string       `json:"log_level"`
	Backend  string       `json:"backend,omitempty"`
	DB       DBConfig     `json:"db"`
	Remote   RemoteConfig `json:"remote"`
	Server   ServerConfig `json:"server"`
}

// DBConfig holds database connection settings. A DSN carrying a password is
// kept in the keychain instead.
type DBConfig struct {
	DSN string `json:"dsn,omitempty"`
}

// RemoteConfig selects a remote gateway server.
type RemoteConfig struct {
	Addr       string `json:"addr,omitempty"`
	Insecure   bool   `json:"insecure,omitempty"`
	ServerName string `json:"server_name,omitempty"`
	// Token comes from the environment or keychain only.
	Token string `json:"-"`
}

// ServerConfig configures `recordgate serve`.
type ServerConfig struct {
	Listen      string `json:"listen,omitempty"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Server:   ServerConfig{Listen: DefaultListen},
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file; a missing file returns defaults.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	return LoadFrom(p)
}

// LoadFrom reads configuration from p. Unset fields take their defaults.
func LoadFrom(p string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", p, err)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(p, c)
}

// SaveTo writes configuration to p with 0600 permissions.
func SaveTo(p string, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// ApplyEnv overrides settings from the environment. getenv is usually
// os.Getenv. RECORDGATE_DSN wins over DATABASE_URL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		c.DB.DSN = v
	}
	if v := strings.TrimSpace(getenv(EnvDSN)); v != "" {
		c.DB.DSN = v
	}
	if v := strings.TrimSpace(getenv(EnvAddr)); v != "" {
		c.Remote.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		c.Remote.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the backend kind.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendPostgres, BackendSQLite, BackendRemote:
		return nil
	}
	return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendPostgres, BackendSQLite, BackendRemote)
}

// ResolveBackend returns the backend to use: the explicit setting, else
// remote when an address is set, else whatever the DSN points at, else the
// local SQLite file.
func (c Config) ResolveBackend() string {
	if c.Backend != "" {
		return c.Backend
	}
	if c.Remote.Addr != "" {
		return BackendRemote
	}
	if dsn.DetectDBType(c.DB.DSN) == dsn.DBTypePostgreSQL {
		return BackendPostgres
	}
	return BackendSQLite
}

// DefaultSQLiteDSN returns the DSN of the local database file in the XDG
// state directory.
func DefaultSQLiteDSN() (string, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return "", err
	}
	return "sqlite:" + filepath.Join(dir, dbFileName), nil
}
