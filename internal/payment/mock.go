package payment

import (
	"context"
	"database/sql"
)

// Test doubles for the DB interfaces. Function fields override behavior per
// test; nil fields fall back to benign defaults.

type MockDB struct {
	BeginTxFunc     func(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	PingContextFunc func(ctx context.Context) error

	BeginCalls int
}

func (m *MockDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	m.BeginCalls++
	if m.BeginTxFunc != nil {
		return m.BeginTxFunc(ctx, opts)
	}
	return &MockTx{}, nil
}

func (m *MockDB) PingContext(ctx context.Context) error {
	if m.PingContextFunc != nil {
		return m.PingContextFunc(ctx)
	}
	return nil
}

type MockTx struct {
	ExecContextFunc     func(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContextFunc func(ctx context.Context, query string, args ...any) Row
	CommitFunc          func() error
	RollbackFunc        func() error

	// Recorded calls, in order.
	ExecQueries []string
	ExecArgs    [][]any
	Committed   bool
	RolledBack  bool
}

func (m *MockTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	m.ExecQueries = append(m.ExecQueries, query)
	m.ExecArgs = append(m.ExecArgs, args)
	if m.ExecContextFunc != nil {
		return m.ExecContextFunc(ctx, query, args...)
	}
	return nil, nil
}

func (m *MockTx) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	if m.QueryRowContextFunc != nil {
		return m.QueryRowContextFunc(ctx, query, args...)
	}
	return &MockRow{}
}

func (m *MockTx) Commit() error {
	m.Committed = true
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return nil
}

func (m *MockTx) Rollback() error {
	m.RolledBack = true
	if m.RollbackFunc != nil {
		return m.RollbackFunc()
	}
	return nil
}

type MockRow struct {
	ScanFunc func(dest ...any) error
}

func (m *MockRow) Scan(dest ...any) error {
	if m.ScanFunc != nil {
		return m.ScanFunc(dest...)
	}
	return sql.ErrNoRows
}
