package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/messline/messauth/account"
)

// RunChangePassword replaces the credential of an authenticated account after
// re-checking the current one.
func RunChangePassword(ctx context.Context, accountID, current, next string, d Deps) error {
	d.normalize()
	if !d.ready() {
		return d.Errors.EngineNotReady
	}

	acct, err := d.loadByID(ctx, accountID)
	if err != nil {
		return d.changeFailed(ctx, accountID, err)
	}
	if !acct.VerifyCredential(d.Hasher, current) {
		d.MetricInc(d.Metrics.PasswordChangeInvalidOld)
		return d.changeFailed(ctx, accountID, d.Errors.InvalidCurrentCredential)
	}

	hash, err := d.Hasher.Hash(next)
	if err != nil {
		return d.changeFailed(ctx, accountID, fmt.Errorf("%w: hash: %v", d.Errors.EngineNotReady, err))
	}
	acct.SetPasswordHash(hash, d.Now())
	if err := d.Store.Update(ctx, acct); err != nil {
		// The credential may have changed under us; the caller must re-check.
		if errors.Is(err, account.ErrVersionConflict) {
			err = d.Errors.Conflict
		} else {
			err = d.mapStoreError(err)
		}
		return d.changeFailed(ctx, accountID, err)
	}

	d.MetricInc(d.Metrics.PasswordChangeSuccess)
	d.EmitAudit(ctx, d.Events.PasswordChangeSuccess, true, accountID, nil, nil)
	return nil
}

func (d *Deps) changeFailed(ctx context.Context, accountID string, err error) error {
	d.EmitAudit(ctx, d.Events.PasswordChangeFailure, false, accountID, err, nil)
	return err
}

// RunUpdateProfile merges the set fields of update into the account.
func RunUpdateProfile(ctx context.Context, accountID string, update account.ProfileUpdate, d Deps) (account.Profile, error) {
	d.normalize()
	if !d.ready() {
		return account.Profile{}, d.Errors.EngineNotReady
	}

	acct, err := d.mutateByID(ctx, accountID, func(a *account.Account) error {
		a.Apply(update, d.Now())
		return nil
	})
	if err != nil {
		d.EmitAudit(ctx, d.Events.ProfileUpdate, false, accountID, err, nil)
		return account.Profile{}, err
	}

	d.MetricInc(d.Metrics.ProfileUpdate)
	d.EmitAudit(ctx, d.Events.ProfileUpdate, true, accountID, nil, func() map[string]string {
		fields := ""
		if update.Name.Set {
			fields = "name"
		}
		if update.Phone.Set {
			if fields != "" {
				fields += ","
			}
			fields += "phone"
		}
		return map[string]string{"fields": fields}
	})
	return acct.Profile(), nil
}

// RunGetProfile returns the public view of an account.
func RunGetProfile(ctx context.Context, accountID string, d Deps) (account.Profile, error) {
	d.normalize()
	if !d.ready() {
		return account.Profile{}, d.Errors.EngineNotReady
	}
	acct, err := d.loadByID(ctx, accountID)
	if err != nil {
		return account.Profile{}, err
	}
	return acct.Profile(), nil
}
