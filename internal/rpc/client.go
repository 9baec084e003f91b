// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rpc

import (
	"context"
	"crypto/tls"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/gateway"
	"recordgate/cli/internal/records"
)

// DialOptions configure a remote connection.
type DialOptions struct {
	// Insecure disables TLS. Use only for local servers.
	Insecure bool
	// ServerName overrides the TLS server name; defaults to the host of addr.
	ServerName string
	// Token is sent as a bearer token on every call when set.
	Token string
}

// Client calls a remote RecordGateway. It implements gateway.Invoker.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
	close func() error
}

var _ gateway.Invoker = (*Client)(nil)

// Dial creates a client for addr. The connection is established lazily on
// the first call. A missing port defaults to 443 with TLS and 7070 without.
func Dial(addr string, opts DialOptions) (*Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New(errors.InvalidArgument, "remote address is required")
	}
	host, target := addr, addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	} else if opts.Insecure {
		target = net.JoinHostPort(addr, "7070")
	} else {
		target = net.JoinHostPort(addr, "443")
	}

	creds := insecure.NewCredentials()
	if !opts.Insecure {
		serverName := opts.ServerName
		if serverName == "" {
			serverName = host
		}
		creds = credentials.NewTLS(&tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, errors.Wrap(errors.InvalidArgument, "dial "+target, err)
	}
	return &Client{conn: conn, token: opts.Token, close: conn.Close}, nil
}

// NewClient wraps an existing connection. The caller owns conn.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token, close: func() error { return nil }}
}

// Close releases the connection created by Dial.
func (c *Client) Close() error { return c.close() }

// DeleteRecords implements gateway.Invoker.
func (c *Client) DeleteRecords(ctx context.Context, b batch.DeleteBatch) ([]records.Outcome, error) {
	var out []records.Outcome
	return out, c.call(ctx, MethodDelete, b, keyOutcomes, &out)
}

// UpdateRecords implements gateway.Invoker.
func (c *Client) UpdateRecords(ctx context.Context, b batch.UpdateBatch) ([]records.Outcome, error) {
	var out []records.Outcome
	return out, c.call(ctx, MethodUpdate, b, keyOutcomes, &out)
}

// InsertRecords implements gateway.Invoker.
func (c *Client) InsertRecords(ctx context.Context, b batch.InsertBatch) ([]records.Outcome, error) {
	var out []records.Outcome
	return out, c.call(ctx, MethodInsert, b, keyOutcomes, &out)
}

// UpsertRecords implements gateway.Invoker.
func (c *Client) UpsertRecords(ctx context.Context, b batch.UpsertBatch) ([]records.Outcome, error) {
	var out []records.Outcome
	return out, c.call(ctx, MethodUpsert, b, keyOutcomes, &out)
}

// GetRecords implements gateway.Invoker.
func (c *Client) GetRecords(ctx context.Context, q batch.QuerySpec) ([]records.Row, error) {
	var out []records.Row
	return out, c.call(ctx, MethodGet, q, keyRows, &out)
}

func (c *Client) call(ctx context.Context, method string, req any, key string, dst any) error {
	in, err := toStruct(req)
	if err != nil {
		return errors.Wrap(errors.InvalidArgument, "encode request", err)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, resp); err != nil {
		return fromStatus(method, err)
	}
	v, ok := resp.GetFields()[key]
	if !ok {
		return errors.Newf(errors.BackendRejected, "%s: response has no %q", method, key)
	}
	if err := fromValue(v, dst); err != nil {
		return errors.Wrap(errors.BackendRejected, "decode "+key, err)
	}
	return nil
}

// fromStatus restores the error kind a Server encoded into a status code.
func fromStatus(method string, err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return errors.Wrap(errors.InvalidArgument, method, err)
	case codes.Unauthenticated, codes.PermissionDenied, codes.FailedPrecondition:
		return errors.Wrap(errors.BackendRejected, method, err)
	}
	return errors.Classify(method, err)
}
