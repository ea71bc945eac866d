package payment

import "net/http"

// Code is the machine-readable error classification carried on every
// non-success response.
type Code string

const (
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeReservationNotFound    Code = "RESERVATION_NOT_FOUND"
	CodeAmountMismatch         Code = "AMOUNT_MISMATCH"
	CodeReservationUnavailable Code = "RESERVATION_SERVICE_UNAVAILABLE"
	CodePaymentNotFound        Code = "PAYMENT_NOT_FOUND"
	CodeAlreadyRefunded        Code = "PAYMENT_ALREADY_REFUNDED"
	CodeRefundNotAllowed       Code = "REFUND_NOT_ALLOWED"
	CodeInternal               Code = "INTERNAL_ERROR"
)

// HTTPStatus maps an error code to the transport status. The JSON envelope
// carries the code itself; the status is a convenience for HTTP clients.
func (c Code) HTTPStatus() int {
	switch c {
	case "":
		return http.StatusOK
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeReservationNotFound, CodePaymentNotFound:
		return http.StatusNotFound
	case CodeAmountMismatch:
		return http.StatusUnprocessableEntity
	case CodeAlreadyRefunded, CodeRefundNotAllowed:
		return http.StatusConflict
	case CodeReservationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
