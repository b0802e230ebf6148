package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/messline/messauth"
	"github.com/messline/messauth/account"
)

const maxBodyBytes = 1 << 16

type envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code       string               `json:"code"`
	Message    string               `json:"message"`
	Resolution string               `json:"resolution,omitempty"`
	Details    []account.FieldError `json:"details,omitempty"`
}

type errorMapping struct {
	status     int
	code       string
	message    string
	resolution string
}

// Wire codes. They are stable across releases.
const (
	CodeDuplicateIdentity        = "duplicate-identity"
	CodeNotFound                 = "not-found"
	CodeAlreadyVerified          = "already-verified"
	CodeInvalidOrExpiredCode     = "invalid-or-expired-code"
	CodeInvalidCredentials       = "invalid-credentials"
	CodeNotVerified              = "not-verified"
	CodeDeactivated              = "deactivated"
	CodeNotificationFailure      = "notification-failure"
	CodeInvalidCurrentCredential = "invalid-current-credential"
	CodeUnauthorized             = "unauthorized"
	CodeForbidden                = "forbidden"
	CodeValidation               = "validation-failure"
	CodeRateLimited              = "rate-limited"
	CodeConflict                 = "conflict"
	CodeUnavailable              = "service-unavailable"
	CodeInternal                 = "internal-error"
)

// errorMappings is checked in order. ErrTokenExpired precedes ErrUnauthorized
// because expired-token errors match both.
var errorMappings = []struct {
	err     error
	mapping errorMapping
}{
	{messauth.ErrValidation, errorMapping{http.StatusBadRequest, CodeValidation, "Validation failed", "Check input fields and try again"}},
	{messauth.ErrDuplicateIdentity, errorMapping{http.StatusConflict, CodeDuplicateIdentity, "Email already registered", "Use a different email or try logging in"}},
	{messauth.ErrNotFound, errorMapping{http.StatusNotFound, CodeNotFound, "User not found", "Check your email address"}},
	{messauth.ErrAlreadyVerified, errorMapping{http.StatusBadRequest, CodeAlreadyVerified, "Account already verified", "Proceed to login"}},
	{messauth.ErrInvalidOrExpiredCode, errorMapping{http.StatusBadRequest, CodeInvalidOrExpiredCode, "Invalid or expired OTP", "Request new OTP"}},
	{messauth.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials", "Check your email and password"}},
	{messauth.ErrNotVerified, errorMapping{http.StatusForbidden, CodeNotVerified, "Account not verified", "Complete email verification first"}},
	{messauth.ErrDeactivated, errorMapping{http.StatusForbidden, CodeDeactivated, "Account deactivated", "Contact administrator"}},
	{messauth.ErrNotificationFailure, errorMapping{http.StatusBadGateway, CodeNotificationFailure, "Failed to send email", "Try again later or contact support"}},
	{messauth.ErrInvalidCurrentCredential, errorMapping{http.StatusBadRequest, CodeInvalidCurrentCredential, "Current password is incorrect", "Check your current password"}},
	{messauth.ErrTokenExpired, errorMapping{http.StatusUnauthorized, CodeUnauthorized, "Token expired", "Reauthenticate"}},
	{messauth.ErrUnauthorized, errorMapping{http.StatusUnauthorized, CodeUnauthorized, "Not authorized", "Provide a valid bearer token"}},
	{messauth.ErrForbidden, errorMapping{http.StatusForbidden, CodeForbidden, "Access denied", "Your account cannot use this resource"}},
	{messauth.ErrRateLimited, errorMapping{http.StatusTooManyRequests, CodeRateLimited, "Too many requests", "Try again in a few minutes"}},
	{messauth.ErrConflict, errorMapping{http.StatusConflict, CodeConflict, "Account changed during the request", "Retry the request"}},
	{messauth.ErrStoreUnavailable, errorMapping{http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable", "Try again later"}},
	{messauth.ErrEngineNotReady, errorMapping{http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable", "Try again later"}},
}

var internalError = errorMapping{http.StatusInternalServerError, CodeInternal, "Internal server error", "Try again later"}

// mappingFor returns the response for err and whether err was recognized.
func mappingFor(err error) (errorMapping, bool) {
	for _, entry := range errorMappings {
		if errors.Is(err, entry.err) {
			return entry.mapping, true
		}
	}
	return internalError, false
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeMapping(w http.ResponseWriter, mapping errorMapping, details []account.FieldError) {
	writeJSON(w, mapping.status, envelope{
		Error: &errorBody{
			Code:       mapping.code,
			Message:    mapping.message,
			Resolution: mapping.resolution,
			Details:    details,
		},
	})
}

// errMalformedBody is reported as a validation failure.
var errMalformedBody = &account.ValidationError{Fields: []account.FieldError{{Field: "body", Message: "request body must be a JSON object"}}}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return nil
}
