// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"fmt"
	"strings"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/records"
)

// DeleteRecords deletes each referenced record.
func (e *Engine) DeleteRecords(ctx context.Context, b batch.DeleteBatch) ([]records.Outcome, error) {
	return e.runBatch(ctx, "delete", b.Len(), b.AllOrNone, func(ctx context.Context, q Querier, i int) (records.Outcome, error) {
		ref := b.RecordIDs[i]
		obj, ok, err := e.resolve(ctx, q, ref)
		if err != nil {
			return e.recordError(ctx, err)
		}
		if !ok {
			return records.Failed(reason(ReasonUnknownReference, "entity %s is deleted", ref)), nil
		}

		p := e.dialect.Placeholder
		if _, err := q.Exec(ctx, "DELETE FROM "+quote(obj.Table)+" WHERE "+quote("id")+" = "+p(1), string(ref)); err != nil {
			return e.recordError(ctx, err)
		}
		if _, err := q.Exec(ctx, "DELETE FROM recordgate_refs WHERE id = "+p(1), string(ref)); err != nil {
			return e.recordError(ctx, err)
		}
		return records.Succeeded(ref), nil
	})
}

// UpdateRecords updates each record identified by its Id field. Records of
// one batch may belong to different object types.
func (e *Engine) UpdateRecords(ctx context.Context, b batch.UpdateBatch) ([]records.Outcome, error) {
	return e.runBatch(ctx, "update", b.Len(), b.AllOrNone, func(ctx context.Context, q Querier, i int) (records.Outcome, error) {
		rec := b.Records[i]
		ref, ok := rec.Reference()
		if !ok {
			return records.Failed(reason(ReasonMissingID, "Id not specified in an update call")), nil
		}
		obj, ok, err := e.resolve(ctx, q, ref)
		if err != nil {
			return e.recordError(ctx, err)
		}
		if !ok {
			return records.Failed(reason(ReasonUnknownReference, "entity %s is deleted", ref)), nil
		}
		return e.updateRow(ctx, q, obj, ref, rec)
	})
}

// InsertRecords creates one record per descriptor and reports its new
// reference.
func (e *Engine) InsertRecords(ctx context.Context, b batch.InsertBatch) ([]records.Outcome, error) {
	return e.runBatch(ctx, "insert", b.Len(), b.AllOrNone, func(ctx context.Context, q Querier, i int) (records.Outcome, error) {
		in := b.RecordInputs[i]
		obj, why, err := e.lookupObject(ctx, q, in.ObjectType)
		if err != nil {
			return e.recordError(ctx, err)
		}
		if why != "" {
			return records.Failed(why), nil
		}
		if hasIDField(in.Fields) {
			return records.Failed(reason(ReasonInvalidField, "cannot specify Id in an insert call")), nil
		}
		return e.insertRow(ctx, q, obj, in.Fields)
	})
}

// UpsertRecords creates or updates records of b.APIName. With the default
// external ID "Id" every record must reference an existing record of that
// type. With another external ID field the record's value for it selects
// the target: no match inserts, one match updates, several matches fail.
func (e *Engine) UpsertRecords(ctx context.Context, b batch.UpsertBatch) ([]records.Outcome, error) {
	byID := strings.EqualFold(b.ExternalID, records.IDField)

	return e.runBatch(ctx, "upsert", b.Len(), b.AllOrNone, func(ctx context.Context, q Querier, i int) (records.Outcome, error) {
		rec := b.Records[i]
		obj, why, err := e.lookupObject(ctx, q, b.APIName)
		if err != nil {
			return e.recordError(ctx, err)
		}
		if why != "" {
			return records.Failed(why), nil
		}

		if byID {
			ref, ok := rec.Reference()
			if !ok {
				return records.Failed(reason(ReasonMissingID, "Id not specified in an upsert call")), nil
			}
			owner, ok, err := e.resolve(ctx, q, ref)
			if err != nil {
				return e.recordError(ctx, err)
			}
			if !ok {
				return records.Failed(reason(ReasonUnknownReference, "entity %s is deleted", ref)), nil
			}
			if owner.Table != obj.Table {
				return records.Failed(reason(ReasonInvalidField, "Id %s belongs to %s, not %s", ref, owner.Name, obj.Name)), nil
			}
			return e.updateRow(ctx, q, obj, ref, rec)
		}

		ext, ok := obj.Field(b.ExternalID)
		if !ok {
			return records.Failed(reason(ReasonInvalidField, "No such column '%s' on sobject of type %s", b.ExternalID, obj.Name)), nil
		}
		raw, ok := fieldValue(rec, ext.Name)
		if !ok || raw == nil {
			return records.Failed(reason(ReasonMissingID, "%s not specified in an upsert call", ext.Name)), nil
		}
		key, err := e.dialect.toColumnValue(ext.Type, raw)
		if err != nil {
			return records.Failed(reason(ReasonInvalidFieldValue, "%s: %v", ext.Name, err)), nil
		}

		matches, err := e.matchExternal(ctx, q, obj, ext, key)
		if err != nil {
			return e.recordError(ctx, err)
		}
		switch len(matches) {
		case 0:
			if hasIDField(rec) {
				return records.Failed(reason(ReasonInvalidField, "cannot specify Id when upsert inserts a new record")), nil
			}
			return e.insertRow(ctx, q, obj, rec)
		case 1:
			if ref, ok := rec.Reference(); ok && ref != matches[0] {
				return records.Failed(reason(ReasonInvalidField, "Id %s does not match the record with %s = %v", ref, ext.Name, raw)), nil
			}
			return e.updateRow(ctx, q, obj, matches[0], rec)
		default:
			return records.Failed(reason(ReasonDuplicateExternalID, "%s = %v matches %d records", ext.Name, raw, len(matches))), nil
		}
	})
}

// matchExternal returns up to two references whose ext column equals key.
func (e *Engine) matchExternal(ctx context.Context, q Querier, obj *Object, ext Field, key any) ([]records.Reference, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s LIMIT 2",
		quote("id"), quote(obj.Table), quote(strings.ToLower(ext.Name)), e.dialect.Placeholder(1))
	rows, err := q.Query(ctx, stmt, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []records.Reference
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		refs = append(refs, records.Reference(id))
	}
	return refs, rows.Err()
}

func hasIDField(fields map[string]any) bool {
	_, ok := fieldValue(fields, records.IDField)
	return ok
}

// fieldValue looks up a record field ignoring case.
func fieldValue(fields map[string]any, name string) (any, bool) {
	if v, ok := fields[name]; ok {
		return v, true
	}
	for k, v := range fields {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
