package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/sapliy/payment-service/internal/payment"
	"github.com/sapliy/payment-service/pkg/jsonutil"
)

const statusCacheTTL = 30 * time.Second

type paymentService interface {
	ProcessPayment(ctx context.Context, req payment.ProcessRequest) payment.ProcessResult
	RefundPayment(ctx context.Context, req payment.RefundRequest) payment.RefundResult
	GetPaymentStatus(ctx context.Context, transactionID string) (*payment.StatusResult, payment.Code)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Handler owns the HTTP surface. rdb is optional; when nil, status responses
// are served from the database on every request.
type Handler struct {
	svc    paymentService
	store  pinger
	rdb    *redis.Client
	logger *slog.Logger
}

type processPaymentRequest struct {
	ReservationID string  `json:"reservation_id"`
	UserID        string  `json:"user_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	TenantID      string  `json:"tenant_id"`
}

type processPaymentResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message"`
	Code          string `json:"error_code,omitempty"`
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteJSON(w, http.StatusBadRequest, processPaymentResponse{
			Message: "invalid request body",
			Code:    string(payment.CodeInvalidRequest),
		})
		return
	}

	res := h.svc.ProcessPayment(r.Context(), payment.ProcessRequest{
		ReservationID: req.ReservationID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		TenantID:      tenantFrom(r, req.TenantID),
	})

	jsonutil.WriteJSON(w, res.Code.HTTPStatus(), processPaymentResponse{
		Success:       res.Success,
		TransactionID: res.TransactionID,
		Message:       res.Message,
		Code:          string(res.Code),
	})
}

type refundPaymentRequest struct {
	Amount   float64 `json:"amount"`
	Reason   string  `json:"reason"`
	TenantID string  `json:"tenant_id"`
}

type refundPaymentResponse struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id,omitempty"`
	Message  string `json:"message"`
	Code     string `json:"error_code,omitempty"`
}

func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonutil.WriteJSON(w, http.StatusBadRequest, refundPaymentResponse{
				Message: "invalid request body",
				Code:    string(payment.CodeInvalidRequest),
			})
			return
		}
	}

	transactionID := mux.Vars(r)["transaction_id"]
	res := h.svc.RefundPayment(r.Context(), payment.RefundRequest{
		TransactionID: transactionID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		TenantID:      tenantFrom(r, req.TenantID),
	})

	if res.Success {
		h.invalidateStatusCache(r.Context(), transactionID)
	}

	jsonutil.WriteJSON(w, res.Code.HTTPStatus(), refundPaymentResponse{
		Success:  res.Success,
		RefundID: res.RefundID,
		Message:  res.Message,
		Code:     string(res.Code),
	})
}

type paymentStatusResponse struct {
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CreatedAt     string  `json:"created_at"`
}

func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["transaction_id"]

	if cached := h.cachedStatus(r.Context(), transactionID); cached != nil {
		jsonutil.WriteJSON(w, http.StatusOK, cached)
		return
	}

	res, code := h.svc.GetPaymentStatus(r.Context(), transactionID)
	if code != "" {
		msg := "Payment not found"
		if code == payment.CodeInvalidRequest {
			msg = "invalid transaction_id format"
		} else if code == payment.CodeInternal {
			msg = "internal error"
		}
		jsonutil.WriteError(w, code.HTTPStatus(), msg)
		return
	}

	resp := &paymentStatusResponse{
		Status:        string(res.Status),
		TransactionID: res.TransactionID,
		Amount:        res.Amount,
		Currency:      res.Currency,
		CreatedAt:     res.CreatedAt.UTC().Format(time.RFC3339),
	}
	h.cacheStatus(r.Context(), transactionID, resp)
	jsonutil.WriteJSON(w, http.StatusOK, resp)
}

// Liveness: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"service": "payment-service",
	})
}

// Readiness: the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		jsonutil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// tenantFrom prefers the X-Tenant-ID header over the body field.
func tenantFrom(r *http.Request, fromBody string) string {
	if tenant := r.Header.Get("X-Tenant-ID"); tenant != "" {
		return tenant
	}
	return fromBody
}

func statusCacheKey(transactionID string) string {
	return "payment:status:" + transactionID
}

func (h *Handler) cachedStatus(ctx context.Context, transactionID string) *paymentStatusResponse {
	if h.rdb == nil {
		return nil
	}
	raw, err := h.rdb.Get(ctx, statusCacheKey(transactionID)).Bytes()
	if err != nil {
		return nil
	}
	var resp paymentStatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil
	}
	return &resp
}

func (h *Handler) cacheStatus(ctx context.Context, transactionID string, resp *paymentStatusResponse) {
	if h.rdb == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := h.rdb.Set(ctx, statusCacheKey(transactionID), raw, statusCacheTTL).Err(); err != nil {
		h.logger.Warn("failed to cache payment status", "error", err)
	}
}

func (h *Handler) invalidateStatusCache(ctx context.Context, transactionID string) {
	if h.rdb == nil {
		return
	}
	if err := h.rdb.Del(ctx, statusCacheKey(transactionID)).Err(); err != nil {
		h.logger.Warn("failed to invalidate status cache", "error", err)
	}
}
