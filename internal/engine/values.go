// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Per-record failure reason codes. A reason is "<CODE>: <detail>".
const (
	ReasonUnknownReference     = "ENTITY_IS_DELETED"
	ReasonMissingID            = "MISSING_ARGUMENT"
	ReasonInvalidType          = "INVALID_TYPE"
	ReasonInvalidField         = "INVALID_FIELD"
	ReasonInvalidFieldValue    = "INVALID_FIELD_VALUE"
	ReasonDuplicateValue       = "DUPLICATE_VALUE"
	ReasonDuplicateExternalID  = "DUPLICATE_EXTERNAL_ID"
	ReasonRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	ReasonFieldIntegrity       = "FIELD_INTEGRITY_EXCEPTION"
	ReasonRolledBack           = "ALL_OR_NONE_OPERATION_ROLLED_BACK"
	ReasonStorage              = "STORAGE_ERROR"
)

func reason(code, format string, args ...any) string {
	return code + ": " + fmt.Sprintf(format, args...)
}

// toColumnValue converts a JSON-shaped field value into the bind value for a
// column of type t. nil stays nil.
func (d Dialect) toColumnValue(t FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeText:
		switch x := v.(type) {
		case string:
			return x, nil
		case bool, float64, float32, int, int32, int64, json.Number:
			return fmt.Sprint(x), nil
		}
	case TypeInteger:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) && math.Abs(x) <= 1<<53 {
				return int64(x), nil
			}
		case json.Number:
			return x.Int64()
		case string:
			return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		}
	case TypeReal:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			return x.Float64()
		case string:
			return strconv.ParseFloat(strings.TrimSpace(x), 64)
		}
	case TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(x))
		}
	case TypeTimestamp:
		var ts time.Time
		switch x := v.(type) {
		case time.Time:
			ts = x
		case string:
			parsed, err := parseTimestamp(x)
			if err != nil {
				return nil, err
			}
			ts = parsed
		default:
			return nil, fmt.Errorf("cannot use %T as %s", v, t)
		}
		ts = ts.UTC()
		if d.textTime {
			return ts.Format(time.RFC3339Nano), nil
		}
		return ts, nil
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, t)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// fromColumnValue converts a driver value into its JSON-friendly row value.
// t is empty for computed columns that match no field.
func fromColumnValue(t FieldType, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return fromColumnValue(t, string(x))
	case [16]byte:
		return uuid.UUID(x).String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case int32:
		return fromColumnValue(t, int64(x))
	case int16:
		return fromColumnValue(t, int64(x))
	case int64:
		if t == TypeBoolean {
			return x != 0
		}
		return x
	case string:
		if t == TypeTimestamp {
			if ts, err := parseTimestamp(x); err == nil {
				return ts.UTC().Format(time.RFC3339Nano)
			}
		}
		return x
	}
	return v
}
