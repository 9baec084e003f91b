// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for the record gateway.
// Every failure that prevents a batch or query from executing at all carries a
// machine-readable Kind so callers can tell a bad request apart from a backend
// that could not be reached or refused the call.
//
// Per-record failures inside an executed batch are not errors; they travel as
// records.Outcome values.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// InvalidArgument indicates malformed or missing input detected before any
	// backend call was attempted.
	InvalidArgument Kind = "invalid_argument"
	// BackendUnavailable indicates the backend call could not be executed:
	// transport failure, refused connection, timeout.
	BackendUnavailable Kind = "backend_unavailable"
	// BackendRejected indicates the backend refused the call outright:
	// malformed query, permission denial, contract violation.
	BackendRejected Kind = "backend_rejected"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E { return &E{Kind: kind, Message: msg} }

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *E in err's chain, or "" when err is
// nil or unclassified.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
