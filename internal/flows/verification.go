package flows

import (
	"context"
	"errors"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/notify"
)

// consumeOTP checks the submitted code. Expired codes are removed from the
// record on a best-effort basis. Every non-match maps to the same error.
func (d *Deps) consumeOTP(ctx context.Context, acct *account.Account, code string) error {
	switch acct.CheckOTP(code, d.Now()) {
	case account.OTPMatch:
		return nil
	case account.OTPExpired:
		stale := acct.Clone()
		stale.ClearOTP()
		if err := d.Store.Update(context.WithoutCancel(ctx), stale); err != nil {
			d.Logger.DebugContext(ctx, "clearing expired otp failed", "account_id", acct.ID, "error", err)
		} else {
			acct.OTP = nil
			acct.Version = stale.Version
		}
	}
	return d.Errors.InvalidOrExpiredCode
}

// RunVerifyOTP consumes a registration code and marks the account verified.
func RunVerifyOTP(ctx context.Context, email, code string, d Deps) (account.Profile, error) {
	d.normalize()
	if !d.ready() {
		return account.Profile{}, d.Errors.EngineNotReady
	}

	acct, err := d.loadByEmail(ctx, email)
	if err != nil {
		return account.Profile{}, d.verifyFailed(ctx, "", err)
	}
	if acct.IsVerified {
		return account.Profile{}, d.verifyFailed(ctx, acct.ID, d.Errors.AlreadyVerified)
	}
	if err := d.consumeOTP(ctx, acct, code); err != nil {
		return account.Profile{}, d.verifyFailed(ctx, acct.ID, err)
	}

	if err := acct.MarkVerified(d.Now()); err != nil {
		return account.Profile{}, d.verifyFailed(ctx, acct.ID, d.Errors.InvalidOrExpiredCode)
	}
	if err := d.Store.Update(ctx, acct); err != nil {
		// A concurrent writer either consumed or replaced the code.
		if errors.Is(err, account.ErrVersionConflict) {
			err = d.Errors.InvalidOrExpiredCode
		} else {
			err = d.mapStoreError(err)
		}
		return account.Profile{}, d.verifyFailed(ctx, acct.ID, err)
	}

	d.MetricInc(d.Metrics.VerifySuccess)
	d.EmitAudit(ctx, d.Events.VerifyOTP, true, acct.ID, nil, nil)
	return acct.Profile(), nil
}

func (d *Deps) verifyFailed(ctx context.Context, accountID string, err error) error {
	d.MetricInc(d.Metrics.VerifyFailure)
	d.EmitAudit(ctx, d.Events.VerifyOTP, false, accountID, err, nil)
	return err
}

// RunResendOTP replaces the registration code of an unverified account and
// delivers the new one. The previous code stops working.
func RunResendOTP(ctx context.Context, email string, d Deps) error {
	d.normalize()
	if !d.ready() || d.Codes == nil {
		return d.Errors.EngineNotReady
	}

	acct, err := d.loadByEmail(ctx, email)
	if err != nil {
		d.EmitAudit(ctx, d.Events.ResendOTP, false, "", err, nil)
		return err
	}
	if acct.IsVerified {
		d.EmitAudit(ctx, d.Events.ResendOTP, false, acct.ID, d.Errors.AlreadyVerified, nil)
		return d.Errors.AlreadyVerified
	}

	unverified := func(a *account.Account) error {
		if a.IsVerified {
			return d.Errors.AlreadyVerified
		}
		return nil
	}
	if _, err := d.issueAndNotify(ctx, acct.ID, notify.KindRegistrationOTP, unverified); err != nil {
		d.EmitAudit(ctx, d.Events.ResendOTP, false, acct.ID, err, nil)
		return err
	}

	d.MetricInc(d.Metrics.ResendOTP)
	d.EmitAudit(ctx, d.Events.ResendOTP, true, acct.ID, nil, nil)
	return nil
}
