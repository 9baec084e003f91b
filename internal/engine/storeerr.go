// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "github.com/mattn/go-sqlite3"

	"recordgate/cli/internal/errors"
)

// classify wraps a store error with a kind. Errors the database raised for a
// statement it received are BackendRejected whatever their text says.
// Cancelled or expired contexts and lost connections are BackendUnavailable.
func classify(msg string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.KindOf(err) != "":
		return err
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.BackendUnavailable, msg, err)
	case isStatementError(err):
		return errors.Wrap(errors.BackendRejected, msg, err)
	case isConnectionError(err):
		return errors.Wrap(errors.BackendUnavailable, msg, err)
	}
	return errors.Wrap(errors.BackendRejected, msg, err)
}

// isStatementError reports whether err is a driver error about a statement,
// such as a constraint violation or an unknown column.
func isStatementError(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return !connectionLost(pgErr.Code)
	}
	var liteErr sqlite3.Error
	return stderrors.As(err, &liteErr)
}

// isConnectionError reports whether the store could not be reached or
// dropped the session.
func isConnectionError(err error) bool {
	if pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if stderrors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && connectionLost(pgErr.Code) {
		return true
	}
	return errors.IsTransportError(err)
}

// connectionLost reports SQLSTATE classes 08 (connection exception) and
// 57P (operator intervention, e.g. admin_shutdown).
func connectionLost(code string) bool {
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P")
}
