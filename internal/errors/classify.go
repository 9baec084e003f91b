// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package errors

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classify wraps a raw backend error with a kind. Errors that already carry a
// kind are returned unchanged. Transport-level failures become
// BackendUnavailable; anything else the backend produced becomes
// BackendRejected.
func Classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	if IsTransportError(err) {
		return Wrap(BackendUnavailable, msg, err)
	}
	return Wrap(BackendRejected, msg, err)
}

// IsTransportError reports whether err means the backend could not be reached
// or did not answer in time. Only typed errors count: backend messages echo
// caller-supplied field names and are never inspected.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
			return true
		}
		return false
	}
	return isTimeoutError(err) || isDNSError(err) || isConnectionRefusedError(err) || isConnectionResetError(err)
}

// isTimeoutError checks if the error is a timeout or a cancelled call.
func isTimeoutError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return stderrors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	if stderrors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr) && opErr.Op == "dial"
}

// isConnectionResetError checks for a dropped connection or a closed pool.
func isConnectionResetError(err error) bool {
	return stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.EPIPE) ||
		stderrors.Is(err, net.ErrClosed) ||
		stderrors.Is(err, driver.ErrBadConn) ||
		stderrors.Is(err, sql.ErrConnDone)
}
