// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package engine is a record store backend over SQL. It executes normalized
// batches and queries against PostgreSQL (pgx) or SQLite (go-sqlite3) and
// reports one outcome per input record.
//
// Each object type is stored in its own table whose columns are the
// lowercased field names plus the "id" reference column. A registry table maps
// every reference to its object type, so deletes and updates may mix object
// types within one batch.
//
// Every mutation call runs in a single transaction:
//   - allOrNone=true: the first failing record rolls back the whole batch;
//     every record then reports failure.
//   - allOrNone=false: each record runs inside its own savepoint, so a failing
//     record is undone alone and the rest commit.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"recordgate/cli/internal/dsn"
	"recordgate/cli/internal/errors"
	"recordgate/cli/internal/metrics"
	"recordgate/cli/internal/records"
)

// Engine executes record batches against a SQL store. It is safe for
// concurrent use.
type Engine struct {
	db      DB
	dialect Dialect
	catalog *Catalog
	log     logrus.FieldLogger
	newID   func() records.Reference
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is the standard logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIDGenerator replaces the random UUID reference generator.
func WithIDGenerator(gen func() records.Reference) Option {
	return func(e *Engine) { e.newID = gen }
}

// New wraps an open DB. Call Migrate before first use.
func New(db DB, d Dialect, opts ...Option) *Engine {
	e := &Engine{
		db:      db,
		dialect: d,
		catalog: NewCatalog(d),
		log:     logrus.StandardLogger(),
		newID:   func() records.Reference { return records.Reference(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open connects to the store named by a postgres:// or sqlite DSN, verifies
// the connection and creates the metadata tables.
func Open(ctx context.Context, rawDSN string, opts ...Option) (*Engine, error) {
	info, err := dsn.ParseInfo(rawDSN)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidArgument, "parse DSN", err)
	}
	normalized, err := dsn.Parse(rawDSN)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidArgument, "parse DSN", err)
	}

	var (
		db      DB
		dialect Dialect
	)
	switch info.Type {
	case dsn.DBTypePostgreSQL:
		cfg, err := pgxpool.ParseConfig(normalized)
		if err != nil {
			return nil, errors.Wrap(errors.InvalidArgument, "parse DSN", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(errors.BackendUnavailable, "connect to PostgreSQL", err)
		}
		db, dialect = NewPgxDB(pool), Postgres
	case dsn.DBTypeSQLite:
		sqlDB, err := sql.Open("sqlite3", normalized)
		if err != nil {
			return nil, errors.Wrap(errors.BackendUnavailable, "open SQLite", err)
		}
		// One connection: a private :memory: database exists per connection
		// and SQLite serializes writers anyway.
		sqlDB.SetMaxOpenConns(1)
		db, dialect = NewSQLDB(sqlDB), SQLite
	default:
		return nil, errors.Newf(errors.InvalidArgument, "unsupported database type %s", info.Type)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.BackendUnavailable, "connect to "+info.Redacted(), err)
	}
	e := New(db, dialect, opts...)
	if err := e.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	e.log.WithField("store", info.Redacted()).Debug("record store opened")
	return e, nil
}

// Dialect returns the store's SQL dialect.
func (e *Engine) Dialect() Dialect { return e.dialect }

// Catalog returns the object type cache.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Ping verifies the store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.Ping(ctx); err != nil {
		return errors.Wrap(errors.BackendUnavailable, "ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (e *Engine) Close() { e.db.Close() }

// recordFunc processes record i of a batch through q. Per-record failures
// are returned as outcomes; an error aborts the whole call.
type recordFunc func(ctx context.Context, q Querier, i int) (records.Outcome, error)

func (e *Engine) runBatch(ctx context.Context, op string, n int, allOrNone bool, fn recordFunc) ([]records.Outcome, error) {
	outcomes := make([]records.Outcome, n)
	if n == 0 {
		return outcomes, nil
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, classify("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for i := 0; i < n; i++ {
		if !allOrNone {
			if _, err := tx.Exec(ctx, fmt.Sprintf("SAVEPOINT rg_%d", i)); err != nil {
				return nil, classify("savepoint", err)
			}
		}

		out, err := fn(ctx, tx, i)
		if err != nil {
			return nil, classify(op+" record "+fmt.Sprint(i), err)
		}
		outcomes[i] = out

		switch {
		case out.Success && !allOrNone:
			if _, err := tx.Exec(ctx, fmt.Sprintf("RELEASE SAVEPOINT rg_%d", i)); err != nil {
				return nil, classify("release savepoint", err)
			}
		case !out.Success && !allOrNone:
			if _, err := tx.Exec(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT rg_%d", i)); err != nil {
				return nil, classify("rollback to savepoint", err)
			}
		case !out.Success:
			if err := tx.Rollback(ctx); err != nil {
				return nil, classify("rollback", err)
			}
			metrics.RollbacksTotal.WithLabelValues(op).Inc()
			e.log.WithFields(logrus.Fields{
				"operation": op,
				"record":    i,
				"reason":    out.Reason,
			}).Info("all-or-none batch rolled back")
			return rolledBack(outcomes, i), nil
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("commit", err)
	}
	return outcomes, nil
}

// rolledBack marks every record except the failed one as rolled back.
func rolledBack(outcomes []records.Outcome, failed int) []records.Outcome {
	for i := range outcomes {
		if i == failed {
			continue
		}
		outcomes[i] = records.Failed(reason(ReasonRolledBack, "batch rolled back because record %d failed", failed))
	}
	return outcomes
}

// recordError turns a statement error into a per-record failure, or returns
// it when the call was cancelled or the store itself is gone.
func (e *Engine) recordError(ctx context.Context, err error) (records.Outcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return records.Outcome{}, errors.Wrap(errors.BackendUnavailable, "request cancelled", ctxErr)
	}
	if !isStatementError(err) && isConnectionError(err) {
		return records.Outcome{}, classify("connection lost", err)
	}
	code := e.dialect.classify(err)
	if code == "" {
		code = ReasonStorage
	}
	return records.Failed(code + ": " + err.Error()), nil
}

// resolve finds the object type of an existing reference.
func (e *Engine) resolve(ctx context.Context, q Querier, ref records.Reference) (*Object, bool, error) {
	rows, err := q.Query(ctx, "SELECT api_key FROM recordgate_refs WHERE id = "+e.dialect.Placeholder(1), string(ref))
	if err != nil {
		return nil, false, err
	}
	var key string
	found := false
	for rows.Next() {
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, false, err
		}
		found = true
	}
	err = rows.Err()
	rows.Close()
	if err != nil || !found {
		return nil, false, err
	}
	obj, err := e.catalog.Lookup(ctx, q, key)
	if err != nil {
		return nil, false, err
	}
	return obj, true, nil
}

// lookupObject is Catalog.Lookup with unknown types reported as a
// per-record failure reason.
func (e *Engine) lookupObject(ctx context.Context, q Querier, apiName string) (*Object, string, error) {
	obj, err := e.catalog.Lookup(ctx, q, apiName)
	if isUnknownObject(err) {
		return nil, reason(ReasonInvalidType, "%s", err.Error()), nil
	}
	if err != nil {
		return nil, "", err
	}
	return obj, "", nil
}

// assignments converts record fields into column names and bind values,
// skipping the Id field. The returned string is a per-record failure reason.
func (e *Engine) assignments(obj *Object, fields map[string]any) ([]string, []any, string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.EqualFold(name, records.IDField) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		f, ok := obj.Field(name)
		if !ok {
			return nil, nil, reason(ReasonInvalidField, "No such column '%s' on sobject of type %s", name, obj.Name)
		}
		v, err := e.dialect.toColumnValue(f.Type, fields[name])
		if err != nil {
			return nil, nil, reason(ReasonInvalidFieldValue, "%s: %v", f.Name, err)
		}
		cols = append(cols, quote(strings.ToLower(f.Name)))
		args = append(args, v)
	}
	return cols, args, ""
}

func (e *Engine) insertRow(ctx context.Context, q Querier, obj *Object, fields map[string]any) (records.Outcome, error) {
	cols, args, why := e.assignments(obj, fields)
	if why != "" {
		return records.Failed(why), nil
	}
	ref := e.newID()
	cols = append([]string{quote("id")}, cols...)
	args = append([]any{string(ref)}, args...)

	ph := make([]string, len(args))
	for i := range ph {
		ph[i] = e.dialect.Placeholder(i + 1)
	}
	stmt := "INSERT INTO " + quote(obj.Table) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"
	if _, err := q.Exec(ctx, stmt, args...); err != nil {
		return e.recordError(ctx, err)
	}
	p := e.dialect.Placeholder
	if _, err := q.Exec(ctx, "INSERT INTO recordgate_refs (id, api_key) VALUES ("+p(1)+", "+p(2)+")", string(ref), obj.Table); err != nil {
		return e.recordError(ctx, err)
	}
	return records.Succeeded(ref), nil
}

func (e *Engine) updateRow(ctx context.Context, q Querier, obj *Object, ref records.Reference, fields map[string]any) (records.Outcome, error) {
	cols, args, why := e.assignments(obj, fields)
	if why != "" {
		return records.Failed(why), nil
	}
	if len(cols) == 0 {
		return records.Succeeded(ref), nil
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = " + e.dialect.Placeholder(i+1)
	}
	args = append(args, string(ref))
	stmt := "UPDATE " + quote(obj.Table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + quote("id") + " = " + e.dialect.Placeholder(len(args))
	n, err := q.Exec(ctx, stmt, args...)
	if err != nil {
		return e.recordError(ctx, err)
	}
	if n == 0 {
		return records.Failed(reason(ReasonUnknownReference, "entity %s is deleted", ref)), nil
	}
	return records.Succeeded(ref), nil
}
