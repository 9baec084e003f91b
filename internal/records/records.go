// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package records defines the value types exchanged between callers, the
// gateway and the backend: record references, record descriptors used for
// creation, mutable records, per-record mutation outcomes and query rows.
//
// All types are plain caller-owned values. Field mappings carry no schema; only
// the identifying field is ever inspected by this layer.
package records

import (
	"encoding/json"
	"fmt"
)

// IDField is the primary Record Reference field of every object type.
const IDField = "Id"

// Reference is an opaque, globally unique identifier of an existing record.
// Its format is backend-defined.
type Reference string

// Fields is a field-name to value mapping with no compile-time schema.
type Fields map[string]any

// Record is a mutable record. For update it must carry IDField; for upsert it
// must carry the configured external identifier field. Records of one batch
// may belong to different object types.
type Record map[string]any

// Reference returns the record's IDField value when it is a non-empty string.
func (r Record) Reference() (Reference, bool) {
	v, ok := r[IDField].(string)
	if !ok || v == "" {
		return "", false
	}
	return Reference(v), true
}

// Descriptor pairs an object type with field values. It is used only for
// creation, where no Reference exists yet.
type Descriptor struct {
	ObjectType string `json:"apiName"`
	Fields     Fields `json:"fields"`
}

// Outcome is the result of one record in a batch. Outcomes are positionally
// aligned with the batch input: outcome i belongs to input record i.
type Outcome struct {
	Success            bool        `json:"success"`
	AffectedReferences []Reference `json:"affectedReferences"`
	Reason             string      `json:"reason"`
}

// Succeeded returns a successful outcome affecting refs.
func Succeeded(refs ...Reference) Outcome {
	if refs == nil {
		refs = []Reference{}
	}
	return Outcome{Success: true, AffectedReferences: refs}
}

// Failed returns a failed outcome with the given reason.
func Failed(reason string) Outcome {
	return Outcome{Success: false, AffectedReferences: []Reference{}, Reason: reason}
}

// Failedf is Failed with fmt.Sprintf formatting.
func Failedf(format string, args ...any) Outcome {
	return Failed(fmt.Sprintf(format, args...))
}

// Row is one query result row shaped by the query projection.
type Row map[string]any

// CountFailed returns the number of unsuccessful outcomes.
func CountFailed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Success {
			n++
		}
	}
	return n
}

// FromValue converts a caller-shaped value (usually a struct with json tags)
// into a Record using its JSON representation.
func FromValue[T any](v T) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("record must encode to a JSON object: %w", err)
	}
	return rec, nil
}

// FromValues converts each value with FromValue, preserving order.
func FromValues[T any](vs []T) ([]Record, error) {
	if vs == nil {
		return nil, nil
	}
	out := make([]Record, len(vs))
	for i, v := range vs {
		rec, err := FromValue(v)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = rec
	}
	return out, nil
}

// DecodeRows converts query rows into caller-shaped values, preserving order.
func DecodeRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
