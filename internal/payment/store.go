package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DefaultTenantID is the tenant used for tenant-agnostic reads such as
// status lookups, where the globally unique transaction id is the key.
const DefaultTenantID = "00000000-0000-0000-0000-000000000000"

var (
	// ErrInvalidTenant rejects malformed tenant identifiers before any
	// statement reaches the datastore.
	ErrInvalidTenant = errors.New("invalid tenant id")

	// ErrDuplicatePayment reports the unique guard on open payments per
	// reservation.
	ErrDuplicatePayment = errors.New("a payment for this reservation already exists")
)

const uniqueViolation = "23505"

// Store persists payments. Every session it opens is a transaction bound to
// one tenant before any other statement executes.
type Store struct {
	db         DB
	bindTenant bool
	logger     *slog.Logger
}

func NewStore(db DB, logger *slog.Logger) *Store {
	return &Store{db: db, bindTenant: true, logger: logger}
}

// DisableTenantBinding degrades the tenant binding to a logged no-op, for
// datastores without session settings. The tenant id is still validated and
// carried on the session.
func (s *Store) DisableTenantBinding() {
	s.bindTenant = false
	s.logger.Warn("tenant binding disabled, sessions will not set a tenant variable")
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Session is a transactional handle bound to a single tenant. Callers must
// finish every session with Commit or Rollback; both are safe to call after
// the other has run.
type Session struct {
	tx       Tx
	tenantID uuid.UUID
	done     bool
}

// WithTenant validates the tenant id, opens a transaction, and binds it to
// the tenant before returning. An empty tenant id falls back to
// DefaultTenantID.
func (s *Store) WithTenant(ctx context.Context, tenantID string) (*Session, error) {
	if tenantID == "" {
		tenantID = DefaultTenantID
	}
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if s.bindTenant {
		_, err = tx.ExecContext(ctx,
			"SELECT set_config('app.current_tenant_id', $1, true)", tid.String())
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to bind tenant: %w", err)
		}
	}

	return &Session{tx: tx, tenantID: tid}, nil
}

func (s *Session) TenantID() uuid.UUID { return s.tenantID }

func (s *Session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Commit()
}

func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback()
}

// Insert writes a new payment row and fills in its generated id without
// committing, so the caller can keep mutating it in the same transaction.
func (s *Session) Insert(ctx context.Context, p *Payment) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.tx.QueryRowContext(ctx, `
		INSERT INTO payments (reservation_id, user_id, tenant_id, amount, currency, status, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.ReservationID, p.UserID, p.TenantID, p.Amount, p.Currency, p.Status, p.TransactionID, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: reservation %s", ErrDuplicatePayment, p.ReservationID)
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// UpdateStatus persists the payment's status and error annotation.
func (s *Session) UpdateStatus(ctx context.Context, p *Payment) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4`,
		p.Status, p.ErrorMessage, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

// SaveRefund persists the REFUNDED status together with the refund
// sub-record.
func (s *Session) SaveRefund(ctx context.Context, p *Payment) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, refund_id = $2, refund_amount = $3, refund_reason = $4, refunded_at = $5, updated_at = $6
		WHERE id = $7`,
		p.Status, p.RefundID, p.RefundAmount, p.RefundReason, p.RefundedAt, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save refund: %w", err)
	}
	return nil
}

// FindByTransactionID looks a payment up by its externally exposed
// transaction id. Returns (nil, nil) when no row matches.
func (s *Session) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Payment, error) {
	var p Payment
	err := s.tx.QueryRowContext(ctx, `
		SELECT id, reservation_id, user_id, tenant_id, amount, currency, status, transaction_id,
		       error_message, refund_id, refund_amount, refund_reason, refunded_at, created_at, updated_at
		FROM payments
		WHERE transaction_id = $1`,
		transactionID,
	).Scan(
		&p.ID, &p.ReservationID, &p.UserID, &p.TenantID, &p.Amount, &p.Currency, &p.Status, &p.TransactionID,
		&p.ErrorMessage, &p.RefundID, &p.RefundAmount, &p.RefundReason, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return &p, nil
}
