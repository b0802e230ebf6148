package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/messline/messauth/account"
)

// RunLogin checks credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller. The verification and
// active checks run only after the credential matched.
func RunLogin(ctx context.Context, email, plaintext string, d Deps) (Session, error) {
	d.normalize()
	if !d.ready() || d.IssueToken == nil {
		return Session{}, d.Errors.EngineNotReady
	}

	acct, err := d.Store.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return Session{}, d.loginFailed(ctx, "", d.mapStoreError(err))
		}
		if d.DummyHash != "" {
			_, _ = d.Hasher.Verify(plaintext, d.DummyHash)
		}
		d.MetricInc(d.Metrics.LoginFailure)
		return Session{}, d.loginFailed(ctx, "", d.Errors.InvalidCredentials)
	}

	if !acct.VerifyCredential(d.Hasher, plaintext) {
		d.MetricInc(d.Metrics.LoginFailure)
		return Session{}, d.loginFailed(ctx, acct.ID, d.Errors.InvalidCredentials)
	}
	if !acct.IsVerified {
		d.MetricInc(d.Metrics.LoginNotVerified)
		return Session{}, d.loginFailed(ctx, acct.ID, d.Errors.NotVerified)
	}
	if !acct.IsActive {
		d.MetricInc(d.Metrics.LoginDeactivated)
		return Session{}, d.loginFailed(ctx, acct.ID, d.Errors.Deactivated)
	}

	token, expiresAt, err := d.IssueToken(acct.ID, string(acct.Role))
	if err != nil {
		return Session{}, d.loginFailed(ctx, acct.ID, fmt.Errorf("%w: token issue: %v", d.Errors.EngineNotReady, err))
	}

	acct.RecordLogin(d.Now())
	if d.UpgradeOnLogin {
		d.rehashIfNeeded(ctx, acct, plaintext)
	}
	// The session is already valid; losing the last-login stamp is tolerated.
	if err := d.Store.Update(ctx, acct); err != nil {
		d.Logger.WarnContext(ctx, "recording last login failed", "account_id", acct.ID, "error", err)
	}

	d.MetricInc(d.Metrics.LoginSuccess)
	d.EmitAudit(ctx, d.Events.LoginSuccess, true, acct.ID, nil, nil)
	return Session{Token: token, ExpiresAt: expiresAt, Profile: acct.Profile()}, nil
}

func (d *Deps) rehashIfNeeded(ctx context.Context, acct *account.Account, plaintext string) {
	needs, err := d.Hasher.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := d.Hasher.Hash(plaintext)
	if err != nil {
		d.Logger.WarnContext(ctx, "password rehash failed", "account_id", acct.ID, "error", err)
		return
	}
	acct.SetPasswordHash(hash, d.Now())
	d.MetricInc(d.Metrics.PasswordRehash)
}

func (d *Deps) loginFailed(ctx context.Context, accountID string, err error) error {
	d.EmitAudit(ctx, d.Events.LoginFailure, false, accountID, err, nil)
	return err
}
