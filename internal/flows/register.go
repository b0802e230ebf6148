package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/notify"
)

// RegisterRequest carries already-validated registration input. Email is
// expected in normalized form.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     account.Role
	Phone    string
}

// RunRegister creates an unverified account and delivers its verification
// code. If delivery fails the account is deleted again so the email can be
// retried.
func RunRegister(ctx context.Context, req RegisterRequest, d Deps) (account.Profile, error) {
	d.normalize()
	if !d.ready() || d.Codes == nil || d.NewID == nil {
		return account.Profile{}, d.Errors.EngineNotReady
	}

	role := req.Role
	if role == "" {
		role = d.DefaultRole
	}
	if !role.In(d.RegistrableRoles) {
		return account.Profile{}, d.registerFailed(ctx, "", fmt.Errorf("%w: role %q is not registrable", d.Errors.Validation, role))
	}

	existing, err := d.Store.GetByEmail(ctx, req.Email)
	switch {
	case err == nil && existing != nil:
		d.MetricInc(d.Metrics.RegisterDuplicate)
		return account.Profile{}, d.registerFailed(ctx, "", d.Errors.DuplicateIdentity)
	case err != nil && !errors.Is(err, account.ErrNotFound):
		return account.Profile{}, d.registerFailed(ctx, "", d.mapStoreError(err))
	}

	hash, err := d.Hasher.Hash(req.Password)
	if err != nil {
		return account.Profile{}, d.registerFailed(ctx, "", fmt.Errorf("%w: hash: %v", d.Errors.EngineNotReady, err))
	}
	code, err := d.Codes.Generate()
	if err != nil {
		return account.Profile{}, d.registerFailed(ctx, "", fmt.Errorf("%w: code generation: %v", d.Errors.EngineNotReady, err))
	}

	acct := account.New(d.NewID(), req.Name, req.Email, hash, role, req.Phone, d.Now())
	acct.IssueOTP(code.Value, code.ExpiresAt)

	if err := d.Store.Create(ctx, acct); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			d.MetricInc(d.Metrics.RegisterDuplicate)
			return account.Profile{}, d.registerFailed(ctx, "", d.Errors.DuplicateIdentity)
		}
		return account.Profile{}, d.registerFailed(ctx, "", d.mapStoreError(err))
	}

	if sendErr := d.send(ctx, acct, notify.KindRegistrationOTP, code.Value); sendErr != nil {
		delErr := d.Store.Delete(context.WithoutCancel(ctx), acct.ID)
		if delErr != nil && !errors.Is(delErr, account.ErrNotFound) {
			d.Logger.ErrorContext(ctx, "compensating delete failed",
				"account_id", acct.ID,
				"error", delErr,
			)
			sendErr = fmt.Errorf("%w (compensating delete: %v)", sendErr, delErr)
		} else {
			d.MetricInc(d.Metrics.RegisterCompensated)
			d.EmitAudit(ctx, d.Events.RegisterCompensated, true, acct.ID, nil, nil)
		}
		return account.Profile{}, d.registerFailed(ctx, acct.ID, sendErr)
	}

	d.MetricInc(d.Metrics.RegisterSuccess)
	d.EmitAudit(ctx, d.Events.RegisterSuccess, true, acct.ID, nil, func() map[string]string {
		return map[string]string{"role": string(role)}
	})
	return acct.Profile(), nil
}

func (d *Deps) registerFailed(ctx context.Context, accountID string, err error) error {
	d.EmitAudit(ctx, d.Events.RegisterFailure, false, accountID, err, nil)
	return err
}
