// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import "fmt"

// DBType identifies the record store driver a DSN selects.
type DBType string

const (
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeSQLite     DBType = "sqlite"
	DBTypeUnknown    DBType = "unknown"
)

// DSNInfo contains parsed information from a DSN string. For SQLite only
// Database (the file path or ":memory:") and Params are set.
type DSNInfo struct {
	Type     DBType
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the DSN as given by the user.
func (d *DSNInfo) String() string {
	return d.Original
}

// Redacted describes the target without credentials, for status output.
func (d *DSNInfo) Redacted() string {
	switch d.Type {
	case DBTypeSQLite:
		return "sqlite " + d.Database
	case DBTypePostgreSQL:
		return fmt.Sprintf("postgresql %s@%s:%s/%s", d.User, d.Host, d.Port, d.Database)
	}
	return string(d.Type)
}

// Resolver parses and normalizes DSNs of one database type.
type Resolver interface {
	// Parse parses a DSN string and returns its components.
	Parse(dsn string) (*DSNInfo, error)

	// Normalize renders DSN info as a connection string the driver accepts.
	Normalize(info *DSNInfo) (string, error)

	// Validate checks if the DSN is valid for the database type.
	Validate(dsn string) error
}

// ParseError represents an error that occurred during DSN parsing.
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError.
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}
