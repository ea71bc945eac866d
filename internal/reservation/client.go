// Package reservation is the typed client for the reservation service's
// GraphQL API. It validates payment amounts against reservation costs and
// confirms reservations after payment.
package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// Every failure surfaced by this package wraps exactly one of these
// sentinels, so callers classify with errors.Is instead of message text.
var (
	ErrNotFound    = errors.New("reservation not found")
	ErrValidation  = errors.New("reservation validation failed")
	ErrUnavailable = errors.New("reservation service unavailable")
	ErrClient      = errors.New("reservation client error")
)

const (
	requestTimeout = 10 * time.Second

	// AmountTolerance is the absolute deviation allowed when comparing a
	// requested amount to the reservation's cost.
	AmountTolerance = 0.01
)

// Reservation statuses on the remote side that still accept a payment.
var payableStatuses = map[string]bool{
	"PENDING":   true,
	"CONFIRMED": true,
}

// Info is the reservation data returned by the remote service.
type Info struct {
	ID        string
	TenantID  string
	UserID    string
	TotalCost float64
	Status    string
}

// Client talks to the reservation service. The tenant id travels as the
// X-Tenant-ID request header on every call.
type Client struct {
	graphqlURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		graphqlURL: strings.TrimRight(baseURL, "/") + "/graphql",
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

const getReservationQuery = `
	query GetReservation($id: String!) {
		reservationById(id: $id) {
			id
			tenantId
			userId
			totalCost
			status
		}
	}`

const confirmReservationMutation = `
	mutation ConfirmReservation($id: String!, $transactionId: String) {
		confirmReservation(id: $id, transactionId: $transactionId) {
			id
			status
			transactionId
		}
	}`

type graphqlError struct {
	Message string `json:"message"`
}

// post executes one GraphQL request and returns the raw data payload.
// Transport failures and non-2xx responses map to ErrUnavailable; malformed
// bodies and GraphQL-level errors map to ErrClient.
func (c *Client) post(ctx context.Context, query string, variables map[string]any, tenantID string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrClient, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrClient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("reservation service request failed", "error", err)
		return nil, fmt.Errorf("%w: failed to connect to reservation service: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("reservation service returned error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: reservation service returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrClient, err)
	}

	if len(envelope.Errors) > 0 {
		msg := envelope.Errors[0].Message
		c.logger.Error("graphql error from reservation service", "message", msg)
		return nil, fmt.Errorf("%w: graphql error: %s", ErrClient, msg)
	}

	return envelope.Data, nil
}

// GetReservation fetches a reservation by id.
func (c *Client) GetReservation(ctx context.Context, reservationID, tenantID string) (*Info, error) {
	data, err := c.post(ctx, getReservationQuery, map[string]any{"id": reservationID}, tenantID)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ReservationByID *struct {
			ID        string  `json:"id"`
			TenantID  string  `json:"tenantId"`
			UserID    string  `json:"userId"`
			TotalCost float64 `json:"totalCost"`
			Status    string  `json:"status"`
		} `json:"reservationById"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrClient, err)
	}

	if payload.ReservationByID == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
	}

	r := payload.ReservationByID
	return &Info{
		ID:        r.ID,
		TenantID:  r.TenantID,
		UserID:    r.UserID,
		TotalCost: r.TotalCost,
		Status:    r.Status,
	}, nil
}

// ValidateAmount fetches the reservation and checks that the requested amount
// matches its cost within AmountTolerance and that its status still accepts a
// payment.
func (c *Client) ValidateAmount(ctx context.Context, reservationID string, amount float64, tenantID string) (*Info, error) {
	res, err := c.GetReservation(ctx, reservationID, tenantID)
	if err != nil {
		return nil, err
	}

	if math.Abs(res.TotalCost-amount) > AmountTolerance {
		return nil, fmt.Errorf("%w: payment amount %.2f does not match reservation cost %.2f",
			ErrValidation, amount, res.TotalCost)
	}

	if !payableStatuses[res.Status] {
		return nil, fmt.Errorf("%w: cannot process payment for reservation with status %s",
			ErrValidation, res.Status)
	}

	c.logger.Info("payment amount validated",
		"reservation_id", reservationID, "expected", res.TotalCost, "received", amount)

	return res, nil
}

// Confirm marks the reservation as confirmed on the remote side, attaching
// the payment transaction id.
func (c *Client) Confirm(ctx context.Context, reservationID, transactionID, tenantID string) error {
	variables := map[string]any{"id": reservationID, "transactionId": transactionID}
	data, err := c.post(ctx, confirmReservationMutation, variables, tenantID)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return fmt.Errorf("%w: failed to confirm reservation", ErrUnavailable)
		}
		return fmt.Errorf("failed to confirm: %w", err)
	}

	var payload struct {
		ConfirmReservation *struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			TransactionID string `json:"transactionId"`
		} `json:"confirmReservation"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrClient, err)
	}

	if payload.ConfirmReservation == nil || payload.ConfirmReservation.Status != "CONFIRMED" {
		return fmt.Errorf("%w: unexpected confirmation result", ErrClient)
	}

	c.logger.Info("reservation confirmed",
		"reservation_id", reservationID, "transaction_id", transactionID)

	return nil
}
