// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"net/url"
	"sort"
	"strings"
)

// MemoryDatabase is the SQLite path of a private in-memory database.
const MemoryDatabase = ":memory:"

// SQLiteResolver handles sqlite://, sqlite: and file: DSNs.
//
//	sqlite:///var/lib/recordgate/records.db
//	sqlite://./records.db?_busy_timeout=5000
//	sqlite::memory:
//	file:records.db?cache=shared
type SQLiteResolver struct{}

// NewSQLiteResolver creates a new SQLite resolver.
func NewSQLiteResolver() *SQLiteResolver {
	return &SQLiteResolver{}
}

// Parse splits a SQLite DSN into path and driver parameters.
func (r *SQLiteResolver) Parse(dsn string) (*DSNInfo, error) {
	rest := strings.TrimSpace(dsn)
	lower := strings.ToLower(rest)
	switch {
	case strings.HasPrefix(lower, "sqlite://"):
		rest = rest[len("sqlite://"):]
	case strings.HasPrefix(lower, "sqlite:"):
		rest = rest[len("sqlite:"):]
	case strings.HasPrefix(lower, "file:"):
		rest = rest[len("file:"):]
	case lower == MemoryDatabase:
	default:
		return nil, NewParseError(dsn, "missing or invalid scheme", "use sqlite:///path/to/file.db")
	}

	info := &DSNInfo{Type: DBTypeSQLite, Params: make(map[string]string), Original: dsn}
	path, query, _ := strings.Cut(rest, "?")
	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, NewParseError(dsn, "invalid parameters", "use key=value pairs separated by &")
		}
		for k, v := range values {
			if len(v) > 0 {
				info.Params[k] = v[0]
			}
		}
	}
	info.Database = strings.TrimSpace(path)
	if info.Database == "" {
		return nil, NewParseError(dsn, "missing database path", "use sqlite:///path/to/file.db or sqlite::memory:")
	}
	return info, nil
}

// Normalize renders the file: URI go-sqlite3 accepts. Foreign keys are
// always switched on.
func (r *SQLiteResolver) Normalize(info *DSNInfo) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil DSN info", "")
	}
	params := make(map[string]string, len(info.Params)+1)
	for k, v := range info.Params {
		params[k] = v
	}
	if _, ok := params["_foreign_keys"]; !ok {
		params["_foreign_keys"] = "on"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(info.Database)
	for i, k := range keys {
		if i == 0 {
			b.WriteString("?")
		} else {
			b.WriteString("&")
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String(), nil
}

// Validate checks that the DSN names a database.
func (r *SQLiteResolver) Validate(dsn string) error {
	_, err := r.Parse(dsn)
	return err
}

// IsMemory reports whether the DSN names an in-memory database.
func (d *DSNInfo) IsMemory() bool {
	return d.Type == DBTypeSQLite && (d.Database == MemoryDatabase || d.Params["mode"] == "memory")
}
