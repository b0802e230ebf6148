package messauth

import (
	"context"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/flows"
)

// Login exchanges credentials for a session token. An unknown email and a
// wrong password both return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, password string) (Session, error) {
	if e == nil {
		return Session{}, ErrEngineNotReady
	}
	email = account.NormalizeEmail(email)

	var v account.Validator
	v.Check("email", account.ValidateEmail(email))
	if password == "" {
		v.Add("password", "password is required")
	}
	if err := v.Err(); err != nil {
		return Session{}, err
	}

	s, err := flows.RunLogin(ctx, email, password, e.deps)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: s.Token, ExpiresAt: s.ExpiresAt, Profile: s.Profile}, nil
}
