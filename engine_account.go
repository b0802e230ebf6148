package messauth

import (
	"context"
	"strings"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/flows"
)

// ChangePassword replaces the password of an authenticated account.
func (e *Engine) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	var v account.Validator
	if currentPassword == "" {
		v.Add("currentPassword", "current password is required")
	}
	v.Check("newPassword", account.ValidatePassword(newPassword))
	if err := v.Err(); err != nil {
		return err
	}
	if accountID == "" {
		return ErrUnauthorized
	}

	return flows.RunChangePassword(ctx, accountID, currentPassword, newPassword, e.deps)
}

// UpdateProfile changes the fields set in update. An explicitly empty phone
// clears it; name must stay valid.
func (e *Engine) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) (Profile, error) {
	if e == nil {
		return Profile{}, ErrEngineNotReady
	}
	if accountID == "" {
		return Profile{}, ErrUnauthorized
	}

	var v account.Validator
	if name, ok := update.Name.Get(); ok {
		update.Name = account.Some(strings.TrimSpace(name))
		v.Check("name", account.ValidateName(update.Name.Value))
	}
	if phone, ok := update.Phone.Get(); ok {
		update.Phone = account.Some(strings.TrimSpace(phone))
		v.Check("phone", account.ValidatePhone(update.Phone.Value))
	}
	if err := v.Err(); err != nil {
		return Profile{}, err
	}

	if update.Empty() {
		return flows.RunGetProfile(ctx, accountID, e.deps)
	}
	return flows.RunUpdateProfile(ctx, accountID, update, e.deps)
}

// GetProfile returns the public view of an account.
func (e *Engine) GetProfile(ctx context.Context, accountID string) (Profile, error) {
	if e == nil {
		return Profile{}, ErrEngineNotReady
	}
	if accountID == "" {
		return Profile{}, ErrUnauthorized
	}
	return flows.RunGetProfile(ctx, accountID, e.deps)
}
