package messauth

import (
	"context"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/flows"
)

// VerifyOTP consumes the registration code and marks the account verified.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) (Profile, error) {
	if e == nil {
		return Profile{}, ErrEngineNotReady
	}
	email = account.NormalizeEmail(email)

	var v account.Validator
	v.Check("email", account.ValidateEmail(email))
	v.Check("otp", account.ValidateOTPCode(code))
	if err := v.Err(); err != nil {
		return Profile{}, err
	}

	return flows.RunVerifyOTP(ctx, email, code, e.deps)
}

// ResendOTP issues a fresh registration code to an unverified account. The
// previous code stops working.
func (e *Engine) ResendOTP(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email = account.NormalizeEmail(email)

	var v account.Validator
	v.Check("email", account.ValidateEmail(email))
	if err := v.Err(); err != nil {
		return err
	}

	return flows.RunResendOTP(ctx, email, e.deps)
}
