package messauth

import (
	"errors"

	"github.com/messline/messauth/account"
)

var (
	// ErrDuplicateIdentity is returned by Register when the normalized email is taken.
	ErrDuplicateIdentity = errors.New("an account with this email already exists")
	// ErrNotFound is returned when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")
	// ErrAlreadyVerified is returned by VerifyOTP and ResendOTP for verified accounts.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrInvalidOrExpiredCode covers a missing, expired, or mismatched OTP.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired otp")
	// ErrInvalidCredentials is returned by Login for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotVerified is returned when the account has not completed email verification.
	ErrNotVerified = errors.New("account not verified")
	// ErrDeactivated is returned when the account's active flag is off.
	ErrDeactivated = errors.New("account deactivated")
	// ErrNotificationFailure wraps any notifier error or timeout.
	ErrNotificationFailure = errors.New("failed to send notification")
	// ErrInvalidCurrentCredential is returned by ChangePassword on a wrong current password.
	ErrInvalidCurrentCredential = errors.New("current password is incorrect")
	// ErrUnauthorized is returned by the access guard for missing, invalid, or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired is wrapped together with ErrUnauthorized when the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden is returned by the access guard for unverified, deactivated, or disallowed accounts.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is matched by every input validation failure.
	ErrValidation = account.ErrInvalid
	// ErrRateLimited is produced by the HTTP layer, never by the engine.
	ErrRateLimited = errors.New("too many requests")
	// ErrConflict is returned when a concurrent write replaced the record mid-operation.
	ErrConflict = errors.New("account modified concurrently, retry")
	// ErrEngineNotReady is returned when the engine is missing a dependency.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable wraps unexpected account store failures.
	ErrStoreUnavailable = errors.New("account store unavailable")
)
