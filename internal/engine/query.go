// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/records"
)

// SelectStatement assembles the SQL for a query against obj. The projection,
// filter and ordering fragments are passed through verbatim; an empty
// projection selects every column.
func (e *Engine) SelectStatement(obj *Object, q batch.QuerySpec) (string, []any) {
	proj := q.Projection()
	if proj == "" {
		proj = "*"
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(proj)
	b.WriteString(" FROM ")
	b.WriteString(quote(obj.Table))
	if q.WhereClause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.WhereClause)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	var args []any
	if q.QueryLimit != nil {
		args = append(args, *q.QueryLimit)
		b.WriteString(" LIMIT ")
		b.WriteString(e.dialect.Placeholder(len(args)))
	}
	return b.String(), args
}

// GetRecords runs a read query. Result columns that name fields are keyed by
// the field name as defined, so "Id" and "Name" come back with that casing
// whatever the store returns.
func (e *Engine) GetRecords(ctx context.Context, q batch.QuerySpec) ([]records.Row, error) {
	obj, err := e.catalog.Lookup(ctx, e.db, q.APIName)
	if isUnknownObject(err) {
		return nil, errors.Wrap(errors.BackendRejected, ReasonInvalidType, err)
	}
	if err != nil {
		return nil, classify("load object type", err)
	}

	stmt, args := e.SelectStatement(obj, q)
	e.log.WithFields(logrus.Fields{"apiName": obj.Name, "sql": stmt}).Debug("running query")

	rows, err := e.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, classify("query "+obj.Name, err)
	}
	defer rows.Close()

	cols := rows.Columns()
	keys := make([]string, len(cols))
	types := make([]FieldType, len(cols))
	for i, c := range cols {
		keys[i], types[i] = obj.RowKey(c)
	}

	out := []records.Row{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, classify("read row", err)
		}
		row := make(records.Row, len(vals))
		for i, v := range vals {
			row[keys[i]] = fromColumnValue(types[i], v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query "+obj.Name, err)
	}
	return out, nil
}
