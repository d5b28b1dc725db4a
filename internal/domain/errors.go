package domain

import (
	"errors"
	"fmt"
)

// Wire error codes shared with the storefront API. The server reports one of
// these in the body of every non-2xx response; the client raises the
// *_REQUIRED codes locally before attempting a round trip.
const (
	CodeNetworkError      = "NETWORK_ERROR"
	CodeRequestFailed     = "REQUEST_FAILED"
	CodeTokenRequired     = "TOKEN_REQUIRED"
	CodeTokenInvalid      = "TOKEN_INVALID"
	CodeTokenRevoked      = "TOKEN_REVOKED"
	CodeTokenCreateFailed = "TOKEN_CREATE_FAILED"
	CodeCustomerNotFound  = "CUSTOMER_NOT_FOUND"
	CodePhoneRequired     = "PHONE_REQUIRED"
	CodeOTPRequired       = "OTP_REQUIRED"
	CodeOTPInvalid        = "OTP_INVALID"
	CodeQueryRequired     = "QUERY_REQUIRED"
	CodeAddressIDRequired = "ADDRESS_ID_REQUIRED"
	CodeOrderCreateFailed = "ORDER_CREATE_FAILED"
)

// APIError is the typed form of a failed storefront API call. Status is zero
// when no HTTP response was received at all.
type APIError struct {
	Code   string
	Status int
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Code, e.Status)
	}
	return e.Code
}

// NewAPIError builds an APIError with the given code and HTTP status.
func NewAPIError(code string, status int) *APIError {
	return &APIError{Code: code, Status: status}
}

// ErrorCode extracts the wire code from err. Non-API errors report
// NETWORK_ERROR, matching how the client surfaces unexpected failures.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeNetworkError
}
