// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"recordgate/cli/internal/errors"
)

var metadataDDL = []string{
	`CREATE TABLE IF NOT EXISTS recordgate_objects (
		api_key    TEXT PRIMARY KEY,
		api_name   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recordgate_fields (
		api_key    TEXT NOT NULL,
		position   INTEGER NOT NULL,
		field_name TEXT NOT NULL,
		field_type TEXT NOT NULL,
		is_unique  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (api_key, position)
	)`,
	`CREATE TABLE IF NOT EXISTS recordgate_refs (
		id         TEXT PRIMARY KEY,
		api_key    TEXT NOT NULL
	)`,
}

// Migrate creates the metadata tables when they do not exist.
func (e *Engine) Migrate(ctx context.Context) error {
	for _, stmt := range metadataDDL {
		if _, err := e.db.Exec(ctx, stmt); err != nil {
			return classify("create metadata tables", err)
		}
	}
	return nil
}

// DefineObject creates a new object type and its table.
func (e *Engine) DefineObject(ctx context.Context, t ObjectType) error {
	if err := validateObjectType(t); err != nil {
		return errors.Wrap(errors.InvalidArgument, "define object", err)
	}
	obj := newObject(t)
	key := strings.ToLower(t.Name)
	p := e.dialect.Placeholder

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := e.catalog.Lookup(ctx, tx, t.Name); err == nil {
		return errors.Newf(errors.BackendRejected, "object type %s already exists", t.Name)
	} else if !isUnknownObject(err) {
		return classify("define object", err)
	}

	cols := []string{quote("id") + " TEXT PRIMARY KEY"}
	for _, f := range t.Fields {
		ct, err := e.dialect.ColumnType(f.Type)
		if err != nil {
			return errors.Wrap(errors.InvalidArgument, "define object", err)
		}
		col := quote(strings.ToLower(f.Name)) + " " + ct
		if f.Unique {
			col += " UNIQUE"
		}
		cols = append(cols, col)
	}
	ddl := "CREATE TABLE " + quote(obj.Table) + " (" + strings.Join(cols, ", ") + ")"
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return classify("create table "+obj.Table, err)
	}

	if _, err := tx.Exec(ctx, "INSERT INTO recordgate_objects (api_key, api_name) VALUES ("+p(1)+", "+p(2)+")", key, t.Name); err != nil {
		return classify("register object type", err)
	}
	for i, f := range t.Fields {
		unique := 0
		if f.Unique {
			unique = 1
		}
		_, err := tx.Exec(ctx,
			"INSERT INTO recordgate_fields (api_key, position, field_name, field_type, is_unique) VALUES ("+
				p(1)+", "+p(2)+", "+p(3)+", "+p(4)+", "+p(5)+")",
			key, i, f.Name, string(f.Type), unique)
		if err != nil {
			return classify("register field "+f.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit", err)
	}
	e.catalog.Invalidate(t.Name)

	e.log.WithFields(logrus.Fields{"apiName": t.Name, "fields": len(t.Fields)}).Info("object type defined")
	return nil
}

// Objects lists every defined object type ordered by name.
func (e *Engine) Objects(ctx context.Context) ([]ObjectType, error) {
	rows, err := e.db.Query(ctx, "SELECT api_key FROM recordgate_objects ORDER BY api_key")
	if err != nil {
		return nil, classify("list object types", err)
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, classify("list object types", err)
		}
		keys = append(keys, k)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, classify("list object types", err)
	}

	out := make([]ObjectType, 0, len(keys))
	for _, k := range keys {
		obj, err := e.catalog.Lookup(ctx, e.db, k)
		if err != nil {
			return nil, classify("load object type "+k, err)
		}
		out = append(out, obj.ObjectType)
	}
	return out, nil
}
