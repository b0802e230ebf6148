package messauth

import (
	"context"
	"strings"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/flows"
)

// Register creates an unverified account and emails it a verification code.
// When the code cannot be delivered the account is removed again and
// ErrNotificationFailure is returned.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	if e == nil {
		return Profile{}, ErrEngineNotReady
	}

	email := account.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)

	var v account.Validator
	v.Check("name", account.ValidateName(name))
	v.Check("email", account.ValidateEmail(email))
	v.Check("password", account.ValidatePassword(in.Password))
	v.Check("phone", account.ValidatePhone(phone))
	role := in.Role
	if role != "" {
		parsed, err := account.ParseRole(string(role))
		if err != nil {
			v.Add("role", "role must be one of user, mess-owner, admin")
		}
		role = parsed
	}
	if err := v.Err(); err != nil {
		return Profile{}, err
	}

	return flows.RunRegister(ctx, flows.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: in.Password,
		Role:     role,
		Phone:    phone,
	}, e.deps)
}
