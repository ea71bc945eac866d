package payment

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusRefunded, false},
		{StatusCompleted, StatusRefunded, true},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusRefunded, false},
		{StatusRefunded, StatusCompleted, false},
		{StatusRefunded, StatusRefunded, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestMarkFailedRecordsErrorMessage(t *testing.T) {
	p := &Payment{Status: StatusPending}
	if err := p.MarkFailed("confirmation timed out"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if p.Status != StatusFailed {
		t.Errorf("status = %s, want FAILED", p.Status)
	}
	if !p.ErrorMessage.Valid || p.ErrorMessage.String != "confirmation timed out" {
		t.Errorf("error message = %+v", p.ErrorMessage)
	}
}

func TestMarkCompletedFromTerminalStateFails(t *testing.T) {
	for _, s := range []Status{StatusFailed, StatusRefunded, StatusCompleted} {
		p := &Payment{Status: s}
		if err := p.MarkCompleted(); err == nil {
			t.Errorf("MarkCompleted from %s: expected error", s)
		}
	}
}

func TestApplyRefund(t *testing.T) {
	now := time.Now().UTC()
	refundID := uuid.New()

	p := &Payment{Status: StatusCompleted, Amount: 100}
	if err := p.ApplyRefund(refundID, 40, "guest cancelled", now); err != nil {
		t.Fatalf("ApplyRefund: %v", err)
	}
	if p.Status != StatusRefunded {
		t.Errorf("status = %s, want REFUNDED", p.Status)
	}
	if !p.RefundID.Valid || p.RefundID.UUID != refundID {
		t.Errorf("refund id = %+v", p.RefundID)
	}
	if !p.RefundAmount.Valid || p.RefundAmount.Float64 != 40 {
		t.Errorf("refund amount = %+v", p.RefundAmount)
	}
	if !p.RefundedAt.Valid || !p.RefundedAt.Time.Equal(now) {
		t.Errorf("refunded at = %+v", p.RefundedAt)
	}
}

func TestApplyRefundRejectsSecondRefund(t *testing.T) {
	p := &Payment{Status: StatusCompleted, Amount: 100}
	if err := p.ApplyRefund(uuid.New(), 100, "first", time.Now()); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	if err := p.ApplyRefund(uuid.New(), 10, "second", time.Now()); err == nil {
		t.Error("second refund: expected error")
	}
}

func TestApplyRefundRejectsExcessAmount(t *testing.T) {
	p := &Payment{Status: StatusCompleted, Amount: 100}
	if err := p.ApplyRefund(uuid.New(), 100.01, "too much", time.Now()); err == nil {
		t.Error("expected error for amount above original")
	}
	if p.Status != StatusCompleted {
		t.Errorf("status changed on rejected refund: %s", p.Status)
	}
	if p.RefundID.Valid {
		t.Error("refund id set on rejected refund")
	}
}

func TestApplyRefundRequiresCompleted(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusFailed} {
		p := &Payment{Status: s, Amount: 100}
		if err := p.ApplyRefund(uuid.New(), 50, "", time.Now()); err == nil {
			t.Errorf("refund from %s: expected error", s)
		}
	}
}

func TestStatusScan(t *testing.T) {
	var s Status
	if err := s.Scan("COMPLETED"); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	if s != StatusCompleted {
		t.Errorf("scanned %s, want COMPLETED", s)
	}
	if err := s.Scan([]byte("REFUNDED")); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if s != StatusRefunded {
		t.Errorf("scanned %s, want REFUNDED", s)
	}
	if err := s.Scan(42); err == nil {
		t.Error("Scan int: expected error")
	}

	v, err := StatusPending.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "PENDING" {
		t.Errorf("Value = %v, want PENDING", v)
	}

	var _ sql.Scanner = &s
}
