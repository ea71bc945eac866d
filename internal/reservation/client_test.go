package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reservationResponse(cost float64, status string) string {
	return fmt.Sprintf(`{"data": {"reservationById": {
		"id": "res-1", "tenantId": "tenant-1", "userId": "user-1",
		"totalCost": %v, "status": %q}}}`, cost, status)
}

func TestGetReservation(t *testing.T) {
	var gotTenant, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Tenant-ID")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, reservationResponse(150.00, "CONFIRMED"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	info, err := c.GetReservation(context.Background(), "res-1", "tenant-1")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if info.ID != "res-1" || info.TotalCost != 150.00 || info.Status != "CONFIRMED" {
		t.Errorf("info = %+v", info)
	}
	if gotTenant != "tenant-1" {
		t.Errorf("X-Tenant-ID = %q", gotTenant)
	}
	if gotPath != "/graphql" {
		t.Errorf("path = %q", gotPath)
	}
	vars, _ := gotBody["variables"].(map[string]any)
	if vars["id"] != "res-1" {
		t.Errorf("variables = %v", gotBody["variables"])
	}
}

func TestGetReservationNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"reservationById": null}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.GetReservation(context.Background(), "res-missing", "tenant-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetReservationGraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [{"message": "access denied"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.GetReservation(context.Background(), "res-1", "tenant-1")
	if !errors.Is(err, ErrClient) {
		t.Fatalf("err = %v, want ErrClient", err)
	}
}

func TestGetReservationServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.GetReservation(context.Background(), "res-1", "tenant-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestGetReservationConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed on purpose

	c := NewClient(srv.URL, testLogger())
	_, err := c.GetReservation(context.Background(), "res-1", "tenant-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestValidateAmountTolerance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reservationResponse(100.00, "PENDING"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())

	// Within tolerance. The bound is a strict float64 comparison, so 100.01
	// itself lands just outside (abs(100.00-100.01) > 0.01 in float64).
	if _, err := c.ValidateAmount(context.Background(), "res-1", 100.00, "tenant-1"); err != nil {
		t.Errorf("exact amount rejected: %v", err)
	}
	if _, err := c.ValidateAmount(context.Background(), "res-1", 100.005, "tenant-1"); err != nil {
		t.Errorf("amount within tolerance rejected: %v", err)
	}
	// Outside tolerance, on both sides.
	_, err := c.ValidateAmount(context.Background(), "res-1", 100.01, "tenant-1")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	_, err = c.ValidateAmount(context.Background(), "res-1", 100.02, "tenant-1")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	_, err = c.ValidateAmount(context.Background(), "res-1", 99.00, "tenant-1")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestValidateAmountUnpayableStatus(t *testing.T) {
	for _, status := range []string{"CANCELLED", "COMPLETED", "EXPIRED"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, reservationResponse(100.00, status))
		}))
		c := NewClient(srv.URL, testLogger())
		_, err := c.ValidateAmount(context.Background(), "res-1", 100.00, "tenant-1")
		srv.Close()
		if !errors.Is(err, ErrValidation) {
			t.Errorf("status %s: err = %v, want ErrValidation", status, err)
		}
	}
}

func TestConfirm(t *testing.T) {
	var gotVars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotVars, _ = body["variables"].(map[string]any)
		fmt.Fprint(w, `{"data": {"confirmReservation": {
			"id": "res-1", "status": "CONFIRMED", "transactionId": "tx-1"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	if err := c.Confirm(context.Background(), "res-1", "tx-1", "tenant-1"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if gotVars["transactionId"] != "tx-1" {
		t.Errorf("variables = %v", gotVars)
	}
}

func TestConfirmUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"confirmReservation": {"id": "res-1", "status": "PENDING"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	err := c.Confirm(context.Background(), "res-1", "tx-1", "tenant-1")
	if !errors.Is(err, ErrClient) {
		t.Fatalf("err = %v, want ErrClient", err)
	}
}

func TestConfirmUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	err := c.Confirm(context.Background(), "res-1", "tx-1", "tenant-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
