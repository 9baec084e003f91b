// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gateway is the caller-facing surface of the record gateway. A Client
// validates a request, performs exactly one backend call through an Invoker
// and returns the backend's per-record outcomes unchanged.
//
// The Client holds no mutable state besides its collaborators and is safe for
// concurrent use when the Invoker is.
package gateway

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"recordgate/cli/internal/batch"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/metrics"
	"recordgate/cli/internal/records"
)

// Invoker executes normalized requests against a record store. One method
// per backend operation. Implementations return one outcome per input record,
// in input order, and report per-record failures as outcomes rather than
// errors.
type Invoker interface {
	DeleteRecords(ctx context.Context, b batch.DeleteBatch) ([]records.Outcome, error)
	UpdateRecords(ctx context.Context, b batch.UpdateBatch) ([]records.Outcome, error)
	InsertRecords(ctx context.Context, b batch.InsertBatch) ([]records.Outcome, error)
	UpsertRecords(ctx context.Context, b batch.UpsertBatch) ([]records.Outcome, error)
	GetRecords(ctx context.Context, q batch.QuerySpec) ([]records.Row, error)
}

// Operation names used in logs and metrics.
const (
	OpDelete = "delete"
	OpUpdate = "update"
	OpInsert = "insert"
	OpUpsert = "upsert"
	OpGet    = "get"
)

// Client is the record gateway client.
type Client struct {
	invoker Invoker
	log     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is the standard logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client that sends every request through invoker.
func New(invoker Invoker, opts ...Option) *Client {
	c := &Client{invoker: invoker, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Delete removes the referenced records.
func (c *Client) Delete(ctx context.Context, opts batch.DeleteOptions) ([]records.Outcome, error) {
	b, err := batch.BuildDelete(opts)
	if err != nil {
		return nil, c.reject(OpDelete, err)
	}
	return c.mutate(ctx, OpDelete, b.Len(), b.AllOrNone, func(ctx context.Context) ([]records.Outcome, error) {
		return c.invoker.DeleteRecords(ctx, b)
	})
}

// Update modifies existing records; each record is identified by its Id field.
func (c *Client) Update(ctx context.Context, opts batch.UpdateOptions) ([]records.Outcome, error) {
	b, err := batch.BuildUpdate(opts)
	if err != nil {
		return nil, c.reject(OpUpdate, err)
	}
	return c.mutate(ctx, OpUpdate, b.Len(), b.AllOrNone, func(ctx context.Context) ([]records.Outcome, error) {
		return c.invoker.UpdateRecords(ctx, b)
	})
}

// Insert creates records from descriptors.
func (c *Client) Insert(ctx context.Context, opts batch.InsertOptions) ([]records.Outcome, error) {
	b, err := batch.BuildInsert(opts)
	if err != nil {
		return nil, c.reject(OpInsert, err)
	}
	return c.mutate(ctx, OpInsert, b.Len(), b.AllOrNone, func(ctx context.Context) ([]records.Outcome, error) {
		return c.invoker.InsertRecords(ctx, b)
	})
}

// Upsert creates or updates records of one object type, matched by the
// external identifier field.
func (c *Client) Upsert(ctx context.Context, opts batch.UpsertOptions) ([]records.Outcome, error) {
	b, err := batch.BuildUpsert(opts)
	if err != nil {
		return nil, c.reject(OpUpsert, err)
	}
	return c.mutate(ctx, OpUpsert, b.Len(), b.AllOrNone, func(ctx context.Context) ([]records.Outcome, error) {
		return c.invoker.UpsertRecords(ctx, b)
	})
}

// Get runs a read query. Rows come back in backend order.
func (c *Client) Get(ctx context.Context, opts batch.QueryOptions) ([]records.Row, error) {
	q, err := batch.BuildQuery(opts)
	if err != nil {
		return nil, c.reject(OpGet, err)
	}

	start := time.Now()
	rows, err := c.invoker.GetRecords(ctx, q)
	metrics.OperationLatency.WithLabelValues(OpGet).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.fail(OpGet, err)
	}
	if rows == nil {
		rows = []records.Row{}
	}

	metrics.OperationsTotal.WithLabelValues(OpGet, "ok").Inc()
	metrics.RowsReturned.Add(float64(len(rows)))
	c.log.WithFields(logrus.Fields{
		"operation": OpGet,
		"apiName":   q.APIName,
		"rows":      len(rows),
	}).Debug("query completed")
	return rows, nil
}

// GetAs runs Get and decodes every row into T through its JSON shape.
func GetAs[T any](ctx context.Context, c *Client, opts batch.QueryOptions) ([]T, error) {
	rows, err := c.Get(ctx, opts)
	if err != nil {
		return nil, err
	}
	out, err := records.DecodeRows[T](rows)
	if err != nil {
		return nil, errors.Wrap(errors.BackendRejected, "decode rows", err)
	}
	return out, nil
}

func (c *Client) mutate(ctx context.Context, op string, n int, allOrNone bool, call func(context.Context) ([]records.Outcome, error)) ([]records.Outcome, error) {
	metrics.BatchSize.WithLabelValues(op).Observe(float64(n))

	start := time.Now()
	outcomes, err := call(ctx)
	metrics.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.fail(op, err)
	}
	if len(outcomes) != n {
		return nil, c.fail(op, errors.Newf(errors.BackendRejected,
			"backend returned %d outcomes for %d records", len(outcomes), n))
	}
	if outcomes == nil {
		outcomes = []records.Outcome{}
	}

	failed := records.CountFailed(outcomes)
	metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()
	metrics.ObserveOutcomes(op, n-failed, failed)

	entry := c.log.WithFields(logrus.Fields{
		"operation": op,
		"records":   n,
		"failed":    failed,
		"allOrNone": allOrNone,
	})
	if failed > 0 {
		entry.Info("batch completed with per-record failures")
	} else {
		entry.Debug("batch completed")
	}
	return outcomes, nil
}

// reject records a request refused before any backend call.
func (c *Client) reject(op string, err error) error {
	metrics.OperationsTotal.WithLabelValues(op, string(errors.InvalidArgument)).Inc()
	c.log.WithField("operation", op).WithError(err).Debug("request rejected")
	return err
}

// fail classifies a backend error and records it.
func (c *Client) fail(op string, err error) error {
	err = errors.Classify(op+" failed", err)
	metrics.OperationsTotal.WithLabelValues(op, string(errors.KindOf(err))).Inc()
	c.log.WithField("operation", op).WithError(err).Warn("backend call failed")
	return err
}
