package engine

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"recordgate/cli/internal/errors"
)

func TestClassifyStoreErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Kind
	}{
		{"pg unique violation on timeout column", &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "session_timeout_key"`}, errors.BackendRejected},
		{"pg undefined column", &pgconn.PgError{Code: "42703", Message: `column "connection_refused" does not exist`}, errors.BackendRejected},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"}, errors.BackendUnavailable},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, errors.BackendUnavailable},
		{"sqlite unique violation", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, errors.BackendRejected},
		{"wrapped sqlite error", fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrError}), errors.BackendRejected},
		{"plain text mentioning timeout", fmt.Errorf("no such column: timeout"), errors.BackendRejected},
		{"cancelled", context.Canceled, errors.BackendUnavailable},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), errors.BackendUnavailable},
		{"bad connection", driver.ErrBadConn, errors.BackendUnavailable},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, errors.BackendUnavailable},
		{"already classified", errors.New(errors.InvalidArgument, "bad"), errors.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.KindOf(classify("run", tt.err)))
		})
	}
	assert.NoError(t, classify("run", nil))
}

func TestRecordErrorSplitsStatementFromConnection(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	out, err := e.recordError(ctx, sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	assert.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Reason, ReasonDuplicateValue)

	_, err = e.recordError(ctx, driver.ErrBadConn)
	assert.True(t, errors.Is(err, errors.BackendUnavailable), "got %v", err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.recordError(cancelled, fmt.Errorf("interrupted"))
	assert.True(t, errors.Is(err, errors.BackendUnavailable), "got %v", err)
}
