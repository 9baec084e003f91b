// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package batch translates loosely specified caller requests into the exact
// request shapes the backend expects. It applies defaults and rejects
// structurally invalid input before any backend call is attempted.
//
// Builders are pure: they never talk to the backend and never retry. Per-record
// identity rules (does an update carry an Id, does the object type exist) are
// backend knowledge and are not checked here.
package batch

import (
	"strings"

	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/records"
)

// DefaultExternalID is the upsert identity field used when none is given:
// upsert by Record Reference.
const DefaultExternalID = records.IDField

// Bool returns a pointer to v, for the optional AllOrNone fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for the optional QueryLimit field.
func Int(v int) *int { return &v }

func allOrNone(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

// DeleteOptions is the caller-facing delete request.
type DeleteOptions struct {
	// RecordIDs are the references to delete, possibly of different object
	// types. Required: nil is rejected, an empty slice is a no-op batch.
	RecordIDs []records.Reference
	// AllOrNone defaults to true.
	AllOrNone *bool
}

// UpdateOptions is the caller-facing update request.
type UpdateOptions struct {
	// Records must each carry an Id; the backend enforces it. Required.
	Records   []records.Record
	AllOrNone *bool
}

// InsertOptions is the caller-facing insert request.
type InsertOptions struct {
	// RecordInputs are the object type and fields of each record to create. Required.
	RecordInputs []records.Descriptor
	AllOrNone    *bool
}

// UpsertOptions is the caller-facing upsert request.
type UpsertOptions struct {
	Records []records.Record
	// APIName is the object type of every record. Required.
	APIName string
	// ExternalID is the identity field; defaults to "Id".
	ExternalID string
	AllOrNone  *bool
}

// DeleteBatch is the normalized delete request.
type DeleteBatch struct {
	RecordIDs []records.Reference `json:"recordIds"`
	AllOrNone bool                `json:"allOrNone"`
}

// Len returns the number of records in the batch.
func (b DeleteBatch) Len() int { return len(b.RecordIDs) }

// UpdateBatch is the normalized update request.
type UpdateBatch struct {
	Records   []records.Record `json:"records"`
	AllOrNone bool             `json:"allOrNone"`
}

// Len returns the number of records in the batch.
func (b UpdateBatch) Len() int { return len(b.Records) }

// InsertBatch is the normalized insert request.
type InsertBatch struct {
	RecordInputs []records.Descriptor `json:"recordInputs"`
	AllOrNone    bool                 `json:"allOrNone"`
}

// Len returns the number of records in the batch.
func (b InsertBatch) Len() int { return len(b.RecordInputs) }

// UpsertBatch is the normalized upsert request.
type UpsertBatch struct {
	Records    []records.Record `json:"records"`
	APIName    string           `json:"apiName"`
	ExternalID string           `json:"externalId"`
	AllOrNone  bool             `json:"allOrNone"`
}

// Len returns the number of records in the batch.
func (b UpsertBatch) Len() int { return len(b.Records) }

// BuildDelete validates and normalizes a delete request.
func BuildDelete(opts DeleteOptions) (DeleteBatch, error) {
	if opts.RecordIDs == nil {
		return DeleteBatch{}, errors.New(errors.InvalidArgument, "recordIds is required")
	}
	return DeleteBatch{RecordIDs: opts.RecordIDs, AllOrNone: allOrNone(opts.AllOrNone)}, nil
}

// BuildUpdate validates and normalizes an update request.
func BuildUpdate(opts UpdateOptions) (UpdateBatch, error) {
	if opts.Records == nil {
		return UpdateBatch{}, errors.New(errors.InvalidArgument, "records is required")
	}
	return UpdateBatch{Records: opts.Records, AllOrNone: allOrNone(opts.AllOrNone)}, nil
}

// BuildInsert validates and normalizes an insert request.
func BuildInsert(opts InsertOptions) (InsertBatch, error) {
	if opts.RecordInputs == nil {
		return InsertBatch{}, errors.New(errors.InvalidArgument, "recordInputs is required")
	}
	for i, in := range opts.RecordInputs {
		if strings.TrimSpace(in.ObjectType) == "" {
			return InsertBatch{}, errors.Newf(errors.InvalidArgument, "recordInputs[%d]: apiName is required", i)
		}
	}
	return InsertBatch{RecordInputs: opts.RecordInputs, AllOrNone: allOrNone(opts.AllOrNone)}, nil
}

// BuildUpsert validates and normalizes an upsert request.
func BuildUpsert(opts UpsertOptions) (UpsertBatch, error) {
	if opts.Records == nil {
		return UpsertBatch{}, errors.New(errors.InvalidArgument, "records is required")
	}
	if strings.TrimSpace(opts.APIName) == "" {
		return UpsertBatch{}, errors.New(errors.InvalidArgument, "apiName is required")
	}
	ext := strings.TrimSpace(opts.ExternalID)
	if ext == "" {
		ext = DefaultExternalID
	}
	return UpsertBatch{
		Records:    opts.Records,
		APIName:    opts.APIName,
		ExternalID: ext,
		AllOrNone:  allOrNone(opts.AllOrNone),
	}, nil
}
