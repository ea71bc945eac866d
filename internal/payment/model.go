// Package payment holds the payment entity, its state machine, the
// tenant-scoped store, and the orchestration service.
package payment

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// CanTransitionTo reports whether the state machine allows moving to next.
// FAILED and REFUNDED are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusCompleted || next == StatusFailed
	case StatusCompleted:
		return next == StatusRefunded
	default:
		return false
	}
}

func (s *Status) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*s = Status(v)
	case []byte:
		*s = Status(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", value)
	}
	return nil
}

func (s Status) Value() (driver.Value, error) {
	return string(s), nil
}

// Payment is the sole persistent entity. One row per payment attempt,
// scoped to exactly one tenant, looked up externally by TransactionID.
type Payment struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	UserID        uuid.UUID
	TenantID      uuid.UUID
	Amount        float64
	Currency      string
	Status        Status
	TransactionID uuid.UUID
	ErrorMessage  sql.NullString

	RefundID     uuid.NullUUID
	RefundAmount sql.NullFloat64
	RefundReason sql.NullString
	RefundedAt   sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Payment) transition(next Status) error {
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s", p.Status, next)
	}
	p.Status = next
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted moves the payment from PENDING to COMPLETED.
func (p *Payment) MarkCompleted() error {
	return p.transition(StatusCompleted)
}

// MarkFailed moves the payment from PENDING to FAILED, recording the error
// text for audit.
func (p *Payment) MarkFailed(msg string) error {
	if err := p.transition(StatusFailed); err != nil {
		return err
	}
	p.ErrorMessage = sql.NullString{String: msg, Valid: true}
	return nil
}

// ApplyRefund moves a COMPLETED payment to REFUNDED and populates the refund
// sub-record. Refund fields are set exactly once and the refund amount may
// not exceed the original amount.
func (p *Payment) ApplyRefund(refundID uuid.UUID, amount float64, reason string, at time.Time) error {
	if p.RefundID.Valid {
		return fmt.Errorf("payment %s is already refunded", p.TransactionID)
	}
	if amount > p.Amount {
		return fmt.Errorf("refund amount %.2f exceeds original payment amount %.2f", amount, p.Amount)
	}
	if err := p.transition(StatusRefunded); err != nil {
		return err
	}
	p.RefundID = uuid.NullUUID{UUID: refundID, Valid: true}
	p.RefundAmount = sql.NullFloat64{Float64: amount, Valid: true}
	p.RefundReason = sql.NullString{String: reason, Valid: true}
	p.RefundedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}
