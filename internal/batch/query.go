// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package batch

import (
	"strings"

	"recordgate/cli/internal/errors"
)

// QueryOptions is the caller-facing read request.
type QueryOptions struct {
	// APIName is the object type to query. Required.
	APIName string
	// Fields is the projection as a field list. Ignored when QuerySelect is set.
	Fields []string
	// QuerySelect is a raw projection clause, e.g. "Id, Name, CreatedDate".
	QuerySelect string
	// WhereClause is a raw filter, e.g. "Name LIKE 'Acme%'".
	WhereClause string
	// OrderBy is a raw ordering, e.g. "CreatedDate DESC".
	OrderBy string
	// QueryLimit caps the number of rows; nil means unlimited.
	QueryLimit *int
}

// QuerySpec is the normalized read request.
type QuerySpec struct {
	Fields      []string `json:"fields"`
	QuerySelect string   `json:"querySelect"`
	APIName     string   `json:"apiName"`
	WhereClause string   `json:"whereClause"`
	OrderBy     string   `json:"orderBy"`
	QueryLimit  *int     `json:"queryLimit,omitempty"`
}

// Projection returns the select list: the raw clause verbatim when set,
// otherwise the comma-joined field list. An empty result means the backend
// picks its default projection.
func (q QuerySpec) Projection() string {
	if s := strings.TrimSpace(q.QuerySelect); s != "" {
		return s
	}
	return strings.Join(q.Fields, ", ")
}

// BuildQuery validates and normalizes a read request.
func BuildQuery(opts QueryOptions) (QuerySpec, error) {
	if strings.TrimSpace(opts.APIName) == "" {
		return QuerySpec{}, errors.New(errors.InvalidArgument, "apiName is required")
	}
	if opts.QueryLimit != nil && *opts.QueryLimit < 0 {
		return QuerySpec{}, errors.Newf(errors.InvalidArgument, "queryLimit must not be negative (got %d)", *opts.QueryLimit)
	}
	fields := make([]string, 0, len(opts.Fields))
	for _, f := range opts.Fields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return QuerySpec{
		Fields:      fields,
		QuerySelect: strings.TrimSpace(opts.QuerySelect),
		APIName:     opts.APIName,
		WhereClause: strings.TrimSpace(opts.WhereClause),
		OrderBy:     strings.TrimSpace(opts.OrderBy),
		QueryLimit:  opts.QueryLimit,
	}, nil
}
