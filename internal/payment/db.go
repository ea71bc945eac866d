package payment

import (
	"context"
	"database/sql"
	"errors"
)

// DB and Tx are narrow views over database/sql so the store can run against
// a mock in tests.
type DB interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	PingContext(ctx context.Context) error
}

type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	Commit() error
	Rollback() error
}

type Row interface {
	Scan(dest ...any) error
}

// WrapDB adapts a *sql.DB to the DB interface.
func WrapDB(db *sql.DB) DB {
	return &sqlDB{db: db}
}

type sqlDB struct {
	db *sql.DB
}

func (w *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	if w.db == nil {
		return nil, errors.New("database is not connected")
	}
	tx, err := w.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (w *sqlDB) PingContext(ctx context.Context) error {
	if w.db == nil {
		return errors.New("database is not connected")
	}
	return w.db.PingContext(ctx)
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlTx) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }
