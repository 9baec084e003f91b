// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"recordgate/cli/internal/records"
)

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field describes one field of an object type.
type Field struct {
	Name   string    `json:"name"`
	Type   FieldType `json:"type"`
	Unique bool      `json:"unique,omitempty"`
}

// ObjectType describes a record type: its API name and fields. Every object
// type also has the implicit "Id" reference field.
type ObjectType struct {
	Name   string  `json:"apiName"`
	Fields []Field `json:"fields"`
}

// Object is a resolved object type with its storage names. Table and column
// names are the lowercased API names.
type Object struct {
	ObjectType
	Table   string
	columns map[string]Field // lowercased name -> field
}

// Field looks up a field by name, ignoring case.
func (o *Object) Field(name string) (Field, bool) {
	f, ok := o.columns[strings.ToLower(name)]
	return f, ok
}

// RowKey maps a result column back to the field name callers used in the
// definition. Unknown columns keep their name.
func (o *Object) RowKey(column string) (string, FieldType) {
	lower := strings.ToLower(column)
	if lower == strings.ToLower(records.IDField) {
		return records.IDField, TypeText
	}
	if f, ok := o.columns[lower]; ok {
		return f.Name, f.Type
	}
	return column, ""
}

func newObject(t ObjectType) *Object {
	o := &Object{ObjectType: t, Table: strings.ToLower(t.Name), columns: make(map[string]Field, len(t.Fields))}
	for _, f := range t.Fields {
		o.columns[strings.ToLower(f.Name)] = f
	}
	return o
}

// errUnknownObject is returned by Catalog.Lookup for undefined object types.
type errUnknownObject struct{ name string }

func (e errUnknownObject) Error() string {
	return fmt.Sprintf("sObject type '%s' is not supported", e.name)
}

func isUnknownObject(err error) bool {
	_, ok := err.(errUnknownObject)
	return ok
}

// Catalog caches object type definitions read from the metadata tables, so
// batch execution does not query them once per record.
type Catalog struct {
	dialect Dialect
	mu      sync.RWMutex
	cache   map[string]*Object
}

// NewCatalog creates an empty catalog.
func NewCatalog(d Dialect) *Catalog {
	return &Catalog{dialect: d, cache: make(map[string]*Object)}
}

// Lookup returns the object type named apiName, ignoring case. It reads
// through q so it can run inside the caller's transaction.
func (c *Catalog) Lookup(ctx context.Context, q Querier, apiName string) (*Object, error) {
	key := strings.ToLower(strings.TrimSpace(apiName))

	c.mu.RLock()
	if obj, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return obj, nil
	}
	c.mu.RUnlock()

	obj, err := c.load(ctx, q, key)
	if err != nil {
		if isUnknownObject(err) {
			return nil, errUnknownObject{name: apiName}
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = obj
	c.mu.Unlock()
	return obj, nil
}

// Invalidate drops one cached object type.
func (c *Catalog) Invalidate(apiName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, strings.ToLower(strings.TrimSpace(apiName)))
}

// ClearCache drops every cached object type.
func (c *Catalog) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*Object)
}

func (c *Catalog) load(ctx context.Context, q Querier, key string) (*Object, error) {
	p := c.dialect.Placeholder

	rows, err := q.Query(ctx, "SELECT api_name FROM recordgate_objects WHERE api_key = "+p(1), key)
	if err != nil {
		return nil, err
	}
	var t ObjectType
	found := false
	for rows.Next() {
		if err := rows.Scan(&t.Name); err != nil {
			rows.Close()
			return nil, err
		}
		found = true
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errUnknownObject{name: key}
	}

	rows, err = q.Query(ctx,
		"SELECT field_name, field_type, is_unique FROM recordgate_fields WHERE api_key = "+p(1)+" ORDER BY position", key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			f      Field
			ftype  string
			unique int
		)
		if err := rows.Scan(&f.Name, &ftype, &unique); err != nil {
			return nil, err
		}
		f.Type = FieldType(ftype)
		f.Unique = unique != 0
		t.Fields = append(t.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newObject(t), nil
}

// validateObjectType checks names and types of a new definition.
func validateObjectType(t ObjectType) error {
	if !reIdentifier.MatchString(t.Name) {
		return fmt.Errorf("apiName %q must start with a letter or underscore and contain only letters, digits and underscores", t.Name)
	}
	if strings.HasPrefix(strings.ToLower(t.Name), "recordgate_") {
		return fmt.Errorf("apiName %q uses the reserved recordgate_ prefix", t.Name)
	}
	seen := map[string]bool{strings.ToLower(records.IDField): true}
	for i, f := range t.Fields {
		if !reIdentifier.MatchString(f.Name) {
			return fmt.Errorf("fields[%d]: invalid field name %q", i, f.Name)
		}
		lower := strings.ToLower(f.Name)
		if seen[lower] {
			if lower == strings.ToLower(records.IDField) {
				return fmt.Errorf("fields[%d]: %s is implicit and cannot be declared", i, records.IDField)
			}
			return fmt.Errorf("fields[%d]: duplicate field %q", i, f.Name)
		}
		seen[lower] = true
		if !f.Type.Valid() {
			return fmt.Errorf("fields[%d]: unknown type %q (use text, integer, real, boolean or timestamp)", i, f.Type)
		}
	}
	return nil
}

// quote returns a double-quoted identifier. Names are validated before use.
func quote(name string) string {
	return `"` + name + `"`
}
