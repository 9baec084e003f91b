// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strings"
)

// DetectDBType detects the database type from a DSN string.
func DetectDBType(dsn string) DBType {
	lower := strings.ToLower(strings.TrimSpace(dsn))

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DBTypePostgreSQL
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "sqlite:"),
		strings.HasPrefix(lower, "file:"), lower == ":memory:":
		return DBTypeSQLite
	}
	return DBTypeUnknown
}

func resolverFor(dsn string) (Resolver, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a valid database connection string")
	}
	switch DetectDBType(dsn) {
	case DBTypePostgreSQL:
		return NewPostgreSQLResolver(), nil
	case DBTypeSQLite:
		return NewSQLiteResolver(), nil
	}
	return nil, NewParseError(dsn, "unknown database type", "use postgres://, sqlite:///path/to/file.db or sqlite::memory:")
}

// Parse parses a DSN string and returns the normalized connection string.
func Parse(dsn string) (string, error) {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return "", err
	}
	info, err := resolver.Parse(dsn)
	if err != nil {
		return "", err
	}
	return resolver.Normalize(info)
}

// Validate validates a DSN string without normalizing it.
func Validate(dsn string) error {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return err
	}
	return resolver.Validate(dsn)
}

// ParseInfo parses a DSN string and returns detailed DSN info.
func ParseInfo(dsn string) (*DSNInfo, error) {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return nil, err
	}
	return resolver.Parse(dsn)
}
