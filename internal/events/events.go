package events

import (
	"time"
)

// Event is a domain event that can be routed on the bus.
type Event interface {
	RoutingKey() string
}

// PaymentProcessed is published after a payment commits as COMPLETED.
type PaymentProcessed struct {
	EventType     string  `json:"event_type"`
	TransactionID string  `json:"transaction_id"`
	ReservationID string  `json:"reservation_id"`
	UserID        string  `json:"user_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Timestamp     string  `json:"timestamp"`
}

func NewPaymentProcessed(transactionID, reservationID, userID string, amount float64, currency string) PaymentProcessed {
	return PaymentProcessed{
		EventType:     "payment.processed",
		TransactionID: transactionID,
		ReservationID: reservationID,
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

func (PaymentProcessed) RoutingKey() string { return "payment.processed" }

// PaymentRefunded is published after a refund commits.
type PaymentRefunded struct {
	EventType     string  `json:"event_type"`
	RefundID      string  `json:"refund_id"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
	Timestamp     string  `json:"timestamp"`
}

func NewPaymentRefunded(refundID, transactionID string, amount float64, reason string) PaymentRefunded {
	return PaymentRefunded{
		EventType:     "payment.refunded",
		RefundID:      refundID,
		TransactionID: transactionID,
		Amount:        amount,
		Reason:        reason,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

func (PaymentRefunded) RoutingKey() string { return "payment.refunded" }
