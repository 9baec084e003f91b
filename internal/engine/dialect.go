// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// FieldType is the storage type of an object field.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeInteger   FieldType = "integer"
	TypeReal      FieldType = "real"
	TypeBoolean   FieldType = "boolean"
	TypeTimestamp FieldType = "timestamp"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeText, TypeInteger, TypeReal, TypeBoolean, TypeTimestamp:
		return true
	}
	return false
}

// Dialect holds the SQL differences between supported stores.
type Dialect struct {
	Name string
	// numbered placeholders ($1) instead of ?
	numbered bool
	types    map[FieldType]string
	// timestamps stored as RFC 3339 text
	textTime bool
	// classify maps a driver error to a per-record reason code, or "".
	classify func(error) string
}

// Placeholder returns the bind parameter for 1-based position n.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// ColumnType returns the DDL type for a field type.
func (d Dialect) ColumnType(t FieldType) (string, error) {
	ct, ok := d.types[t]
	if !ok {
		return "", fmt.Errorf("unsupported field type %q", t)
	}
	return ct, nil
}

// Postgres is the PostgreSQL dialect used with pgx.
var Postgres = Dialect{
	Name:     "postgresql",
	numbered: true,
	types: map[FieldType]string{
		TypeText:      "TEXT",
		TypeInteger:   "BIGINT",
		TypeReal:      "DOUBLE PRECISION",
		TypeBoolean:   "BOOLEAN",
		TypeTimestamp: "TIMESTAMPTZ",
	},
	classify: classifyPgError,
}

// SQLite is the SQLite dialect used with go-sqlite3.
var SQLite = Dialect{
	Name: "sqlite",
	types: map[FieldType]string{
		TypeText:      "TEXT",
		TypeInteger:   "INTEGER",
		TypeReal:      "REAL",
		TypeBoolean:   "BOOLEAN",
		TypeTimestamp: "TEXT",
	},
	textTime: true,
	classify: classifySQLiteError,
}

func classifyPgError(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	switch pgErr.Code {
	case "23505":
		return ReasonDuplicateValue
	case "23502":
		return ReasonRequiredFieldMissing
	case "22P02", "22003", "22007", "22008":
		return ReasonInvalidFieldValue
	case "23503", "23514":
		return ReasonFieldIntegrity
	}
	return ""
}

func classifySQLiteError(err error) string {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return ""
	}
	switch sqlErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return ReasonDuplicateValue
	case sqlite3.ErrConstraintNotNull:
		return ReasonRequiredFieldMissing
	}
	if sqlErr.Code == sqlite3.ErrConstraint {
		return ReasonFieldIntegrity
	}
	return ""
}
