package messauth

import (
	"context"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/flows"
)

// ForgotPassword emails a reset code to a verified account. An unknown email
// returns nil without sending anything. For an unverified account the result
// depends on PasswordResetConfig.RevealUnverified.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email = account.NormalizeEmail(email)

	var v account.Validator
	v.Check("email", account.ValidateEmail(email))
	if err := v.Err(); err != nil {
		return err
	}

	return flows.RunForgotPassword(ctx, email, e.deps)
}

// ResetPassword consumes a reset code and sets a new password.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email = account.NormalizeEmail(email)

	var v account.Validator
	v.Check("email", account.ValidateEmail(email))
	v.Check("otp", account.ValidateOTPCode(code))
	v.Check("newPassword", account.ValidatePassword(newPassword))
	if err := v.Err(); err != nil {
		return err
	}

	return flows.RunResetPassword(ctx, email, code, newPassword, e.deps)
}
