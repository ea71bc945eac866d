package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sapliy/payment-service/internal/events"
	"github.com/sapliy/payment-service/internal/reservation"
	"github.com/sapliy/payment-service/pkg/monitoring"
)

// DefaultCurrency applies when a request omits the currency code.
const DefaultCurrency = "EUR"

const defaultRefundReason = "Cancellation refund"

// ReservationGateway is the slice of the reservation service the
// orchestrator depends on.
type ReservationGateway interface {
	ValidateAmount(ctx context.Context, reservationID string, amount float64, tenantID string) (*reservation.Info, error)
	Confirm(ctx context.Context, reservationID, transactionID, tenantID string) error
}

// EventSink receives domain events for best-effort publishing.
type EventSink interface {
	Dispatch(evt events.Event)
}

// Service orchestrates the payment saga: validate against the reservation
// service, persist locally, confirm the reservation, then announce the
// outcome. All collaborators are injected once at construction.
type Service struct {
	store        *Store
	reservations ReservationGateway
	events       EventSink
	logger       *slog.Logger
}

func NewService(store *Store, gateway ReservationGateway, sink EventSink, logger *slog.Logger) *Service {
	return &Service{
		store:        store,
		reservations: gateway,
		events:       sink,
		logger:       logger,
	}
}

type ProcessRequest struct {
	ReservationID string
	UserID        string
	TenantID      string
	Amount        float64
	Currency      string
}

type ProcessResult struct {
	Success       bool
	TransactionID string
	Message       string
	Code          Code
}

func processFailure(transactionID, message string, code Code) ProcessResult {
	return ProcessResult{TransactionID: transactionID, Message: message, Code: code}
}

// ProcessPayment runs the payment saga for one reservation.
//
// The PENDING row is flushed before the external confirm call; if that call
// fails, the row is committed as FAILED so the attempt stays auditable and
// the response still carries the transaction id. The payment.processed event
// is dispatched only after a successful commit and never affects the
// outcome.
func (s *Service) ProcessPayment(ctx context.Context, req ProcessRequest) ProcessResult {
	s.logger.Info("ProcessPayment request",
		"reservation_id", req.ReservationID, "user_id", req.UserID,
		"amount", req.Amount, "currency", req.Currency, "tenant_id", req.TenantID)

	reservationID, err := parseRequired(req.ReservationID, "reservation_id")
	if err != nil {
		return processFailure("", err.Error(), CodeInvalidRequest)
	}
	userID, err := parseRequired(req.UserID, "user_id")
	if err != nil {
		return processFailure("", err.Error(), CodeInvalidRequest)
	}
	tenantID, err := parseRequired(req.TenantID, "tenant_id")
	if err != nil {
		return processFailure("", err.Error(), CodeInvalidRequest)
	}
	if req.Amount <= 0 {
		return processFailure("", "amount must be positive", CodeInvalidRequest)
	}
	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return processFailure("", "currency must be a 3-letter code", CodeInvalidRequest)
	}

	if _, err := s.reservations.ValidateAmount(ctx, req.ReservationID, req.Amount, req.TenantID); err != nil {
		switch {
		case errors.Is(err, reservation.ErrNotFound):
			s.logger.Warn("reservation not found", "error", err)
			return processFailure("", err.Error(), CodeReservationNotFound)
		case errors.Is(err, reservation.ErrValidation):
			s.logger.Warn("amount validation failed", "error", err)
			return processFailure("", err.Error(), CodeAmountMismatch)
		case errors.Is(err, reservation.ErrUnavailable):
			s.logger.Error("reservation service unavailable", "error", err)
			return processFailure("", "Reservation service is temporarily unavailable", CodeReservationUnavailable)
		default:
			s.logger.Error("reservation client error", "error", err)
			return processFailure("", fmt.Sprintf("failed to validate reservation: %v", err), CodeInternal)
		}
	}

	transactionID := uuid.New()
	p := &Payment{
		ReservationID: reservationID,
		UserID:        userID,
		TenantID:      tenantID,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        StatusPending,
		TransactionID: transactionID,
	}

	sess, err := s.store.WithTenant(ctx, req.TenantID)
	if err != nil {
		s.logger.Error("failed to open tenant session", "error", err)
		return processFailure("", "internal error during payment processing", CodeInternal)
	}
	defer sess.Rollback()

	if err := sess.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			s.logger.Warn("duplicate payment rejected", "reservation_id", req.ReservationID)
			return processFailure("", err.Error(), CodeInvalidRequest)
		}
		s.logger.Error("database error during payment processing", "error", err)
		return processFailure("", "internal error during payment processing", CodeInternal)
	}

	if err := s.reservations.Confirm(ctx, req.ReservationID, transactionID.String(), req.TenantID); err != nil {
		// The attempt stays on record as a FAILED row.
		if ferr := p.MarkFailed(fmt.Sprintf("failed to confirm reservation: %v", err)); ferr != nil {
			s.logger.Error("failed to mark payment failed", "error", ferr)
			return processFailure("", "internal error during payment processing", CodeInternal)
		}
		if uerr := sess.UpdateStatus(ctx, p); uerr != nil {
			s.logger.Error("database error during payment processing", "error", uerr)
			return processFailure("", "internal error during payment processing", CodeInternal)
		}
		if cerr := sess.Commit(); cerr != nil {
			s.logger.Error("database error during payment processing", "error", cerr)
			return processFailure("", "internal error during payment processing", CodeInternal)
		}
		s.logger.Error("reservation confirmation failed, payment marked as failed",
			"transaction_id", transactionID, "error", err)
		monitoring.PaymentsProcessed.WithLabelValues(string(StatusFailed)).Inc()
		return processFailure(transactionID.String(),
			fmt.Sprintf("payment recorded but reservation confirmation failed: %v", err), CodeInternal)
	}

	if err := p.MarkCompleted(); err != nil {
		s.logger.Error("failed to mark payment completed", "error", err)
		return processFailure("", "internal error during payment processing", CodeInternal)
	}
	if err := sess.UpdateStatus(ctx, p); err != nil {
		s.logger.Error("database error during payment processing", "error", err)
		return processFailure("", "internal error during payment processing", CodeInternal)
	}
	if err := sess.Commit(); err != nil {
		s.logger.Error("database error during payment processing", "error", err)
		return processFailure("", "internal error during payment processing", CodeInternal)
	}

	s.logger.Info("payment completed",
		"transaction_id", transactionID, "reservation_id", req.ReservationID)
	monitoring.PaymentsProcessed.WithLabelValues(string(StatusCompleted)).Inc()

	s.events.Dispatch(events.NewPaymentProcessed(
		transactionID.String(), req.ReservationID, req.UserID, req.Amount, currency))

	return ProcessResult{
		Success:       true,
		TransactionID: transactionID.String(),
		Message:       "Payment processed successfully",
	}
}

type RefundRequest struct {
	TransactionID string
	Amount        float64 // 0 means full refund
	Reason        string
	TenantID      string
}

type RefundResult struct {
	Success  bool
	RefundID string
	Message  string
	Code     Code
}

func refundFailure(refundID, message string, code Code) RefundResult {
	return RefundResult{RefundID: refundID, Message: message, Code: code}
}

// RefundPayment refunds a COMPLETED payment. A requested amount of zero
// refunds the full original amount. A tenant mismatch is reported as
// not-found so cross-tenant existence never leaks.
func (s *Service) RefundPayment(ctx context.Context, req RefundRequest) RefundResult {
	s.logger.Info("RefundPayment request",
		"transaction_id", req.TransactionID, "amount", req.Amount, "reason", req.Reason)

	if req.TransactionID == "" {
		return refundFailure("", "transaction_id is required", CodeInvalidRequest)
	}
	if req.TenantID == "" {
		return refundFailure("", "tenant_id is required", CodeInvalidRequest)
	}
	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return refundFailure("", "invalid transaction_id format", CodeInvalidRequest)
	}

	sess, err := s.store.WithTenant(ctx, req.TenantID)
	if err != nil {
		if errors.Is(err, ErrInvalidTenant) {
			return refundFailure("", "invalid tenant_id format", CodeInvalidRequest)
		}
		s.logger.Error("failed to open tenant session", "error", err)
		return refundFailure("", "internal error during refund processing", CodeInternal)
	}
	defer sess.Rollback()

	p, err := sess.FindByTransactionID(ctx, transactionID)
	if err != nil {
		s.logger.Error("database error during refund processing", "error", err)
		return refundFailure("", "internal error during refund processing", CodeInternal)
	}
	if p == nil || p.TenantID != sess.TenantID() {
		return refundFailure("", "Payment not found", CodePaymentNotFound)
	}

	if p.Status == StatusRefunded {
		refundID := ""
		if p.RefundID.Valid {
			refundID = p.RefundID.UUID.String()
		}
		return refundFailure(refundID, "Payment has already been refunded", CodeAlreadyRefunded)
	}
	if p.Status != StatusCompleted {
		return refundFailure("",
			fmt.Sprintf("cannot refund payment with status %s", p.Status), CodeRefundNotAllowed)
	}

	amount := req.Amount
	if amount <= 0 {
		amount = p.Amount
	}
	if amount > p.Amount {
		return refundFailure("",
			fmt.Sprintf("refund amount %.2f exceeds original payment amount %.2f", amount, p.Amount),
			CodeInvalidRequest)
	}

	reason := req.Reason
	if reason == "" {
		reason = defaultRefundReason
	}

	refundID := uuid.New()
	if err := p.ApplyRefund(refundID, amount, reason, time.Now().UTC()); err != nil {
		s.logger.Error("refund rejected", "error", err)
		return refundFailure("", err.Error(), CodeRefundNotAllowed)
	}
	if err := sess.SaveRefund(ctx, p); err != nil {
		s.logger.Error("database error during refund processing", "error", err)
		return refundFailure("", "internal error during refund processing", CodeInternal)
	}
	if err := sess.Commit(); err != nil {
		s.logger.Error("database error during refund processing", "error", err)
		return refundFailure("", "internal error during refund processing", CodeInternal)
	}

	s.logger.Info("refund processed",
		"refund_id", refundID, "transaction_id", req.TransactionID, "amount", amount)
	monitoring.PaymentsRefunded.Inc()

	s.events.Dispatch(events.NewPaymentRefunded(
		refundID.String(), req.TransactionID, amount, reason))

	return RefundResult{
		Success:  true,
		RefundID: refundID.String(),
		Message:  "Refund processed successfully",
	}
}

// StatusResult is the read-only view returned by GetPaymentStatus.
type StatusResult struct {
	Status        Status
	TransactionID string
	Amount        float64
	Currency      string
	CreatedAt     time.Time
}

// GetPaymentStatus looks a payment up by transaction id. The lookup runs in
// a default-tenant session; transaction ids are globally unique so no tenant
// id is required. The returned code is empty on success.
func (s *Service) GetPaymentStatus(ctx context.Context, transactionID string) (*StatusResult, Code) {
	s.logger.Info("GetPaymentStatus request", "transaction_id", transactionID)

	if transactionID == "" {
		return nil, CodeInvalidRequest
	}
	txID, err := uuid.Parse(transactionID)
	if err != nil {
		s.logger.Warn("invalid transaction_id format", "transaction_id", transactionID)
		return nil, CodeInvalidRequest
	}

	sess, err := s.store.WithTenant(ctx, DefaultTenantID)
	if err != nil {
		s.logger.Error("failed to open session", "error", err)
		return nil, CodeInternal
	}
	defer sess.Rollback()

	p, err := sess.FindByTransactionID(ctx, txID)
	if err != nil {
		s.logger.Error("database error in GetPaymentStatus", "error", err)
		return nil, CodeInternal
	}
	if p == nil {
		return nil, CodePaymentNotFound
	}
	if err := sess.Commit(); err != nil {
		s.logger.Error("database error in GetPaymentStatus", "error", err)
		return nil, CodeInternal
	}

	return &StatusResult{
		Status:        p.Status,
		TransactionID: p.TransactionID.String(),
		Amount:        p.Amount,
		Currency:      p.Currency,
		CreatedAt:     p.CreatedAt,
	}, ""
}

func parseRequired(value, field string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", field)
	}
	return id, nil
}
