// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Rows is a forward-only result cursor. It must be closed.
type Rows interface {
	Next() bool
	Columns() []string
	Values() ([]any, error)
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier runs statements. Both a DB and a Tx are Queriers.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Tx is an open transaction. Rollback after Commit is a no-op.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is a connection pool to a record store.
type DB interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// ---- pgx ----

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxExec struct{ q pgxQuerier }

func (p pgxExec) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := p.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p pgxExec) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := p.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{rows}, nil
}

type pgxRows struct{ pgx.Rows }

func (r pgxRows) Columns() []string {
	fds := r.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols
}

type pgxDB struct {
	pgxExec
	pool *pgxpool.Pool
}

// NewPgxDB adapts a pgx connection pool.
func NewPgxDB(pool *pgxpool.Pool) DB {
	return &pgxDB{pgxExec: pgxExec{pool}, pool: pool}
}

func (d *pgxDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{pgxExec: pgxExec{tx}, tx: tx}, nil
}

func (d *pgxDB) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }
func (d *pgxDB) Close() { d.pool.Close() }

type pgxTx struct {
	pgxExec
	tx pgx.Tx
}

func (t *pgxTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return err
	}
	return nil
}

// ---- database/sql ----

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type sqlExec struct{ q sqlQuerier }

func (s sqlExec) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s sqlExec) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &sqlRows{rows: rows, cols: cols}, nil
}

type sqlRows struct {
	rows *sql.Rows
	cols []string
}

func (r *sqlRows) Next() bool { return r.rows.Next() }
func (r *sqlRows) Columns() []string { return r.cols }
func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Err() error { return r.rows.Err() }
func (r *sqlRows) Close() { _ = r.rows.Close() }

func (r *sqlRows) Values() ([]any, error) {
	vals := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

type sqlDB struct {
	sqlExec
	db *sql.DB
}

// NewSQLDB adapts a database/sql pool.
func NewSQLDB(db *sql.DB) DB {
	return &sqlDB{sqlExec: sqlExec{db}, db: db}
}

func (d *sqlDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{sqlExec: sqlExec{tx}, tx: tx}, nil
}

func (d *sqlDB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *sqlDB) Close() { _ = d.db.Close() }

type sqlTx struct {
	sqlExec
	tx *sql.Tx
}

func (t *sqlTx) Commit(context.Context) error { return t.tx.Commit() }

func (t *sqlTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}
