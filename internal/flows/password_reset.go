package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/notify"
)

// RunForgotPassword issues a reset code to a verified account. An unknown
// email succeeds silently. An unverified account is reported as such only
// when RevealUnverified is set.
func RunForgotPassword(ctx context.Context, email string, d Deps) error {
	d.normalize()
	if !d.ready() || d.Codes == nil {
		return d.Errors.EngineNotReady
	}

	acct, err := d.Store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			d.MetricInc(d.Metrics.PasswordResetRequest)
			d.EmitAudit(ctx, d.Events.PasswordResetRequest, true, "", nil, nil)
			return nil
		}
		return d.mapStoreError(err)
	}
	if !acct.IsVerified {
		d.EmitAudit(ctx, d.Events.PasswordResetRequest, false, acct.ID, d.Errors.NotVerified, nil)
		if d.RevealUnverified {
			return d.Errors.NotVerified
		}
		d.MetricInc(d.Metrics.PasswordResetRequest)
		return nil
	}

	if _, err := d.issueAndNotify(ctx, acct.ID, notify.KindPasswordResetOTP, nil); err != nil {
		d.EmitAudit(ctx, d.Events.PasswordResetRequest, false, acct.ID, err, nil)
		return err
	}

	d.MetricInc(d.Metrics.PasswordResetRequest)
	d.EmitAudit(ctx, d.Events.PasswordResetRequest, true, acct.ID, nil, nil)
	return nil
}

// RunResetPassword consumes a reset code and replaces the credential.
func RunResetPassword(ctx context.Context, email, code, newPassword string, d Deps) error {
	d.normalize()
	if !d.ready() {
		return d.Errors.EngineNotReady
	}

	acct, err := d.loadByEmail(ctx, email)
	if err != nil {
		return d.resetFailed(ctx, "", err)
	}
	if err := d.consumeOTP(ctx, acct, code); err != nil {
		return d.resetFailed(ctx, acct.ID, err)
	}

	hash, err := d.Hasher.Hash(newPassword)
	if err != nil {
		return d.resetFailed(ctx, acct.ID, fmt.Errorf("%w: hash: %v", d.Errors.EngineNotReady, err))
	}
	acct.SetPasswordHash(hash, d.Now())
	acct.ClearOTP()

	if err := d.Store.Update(ctx, acct); err != nil {
		if errors.Is(err, account.ErrVersionConflict) {
			err = d.Errors.InvalidOrExpiredCode
		} else {
			err = d.mapStoreError(err)
		}
		return d.resetFailed(ctx, acct.ID, err)
	}

	d.MetricInc(d.Metrics.PasswordResetConfirmOK)
	d.EmitAudit(ctx, d.Events.PasswordResetConfirm, true, acct.ID, nil, nil)
	return nil
}

func (d *Deps) resetFailed(ctx context.Context, accountID string, err error) error {
	d.MetricInc(d.Metrics.PasswordResetConfirmFailed)
	d.EmitAudit(ctx, d.Events.PasswordResetConfirm, false, accountID, err, nil)
	return err
}
