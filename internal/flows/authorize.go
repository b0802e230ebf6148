package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/messline/messauth/account"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	AccountID string
	Role      account.Role
	Profile   account.Profile
}

// RunAuthorize resolves a bearer token to a principal. The role carried in
// the token is not trusted; the stored record decides verification, activity
// and role. An empty allowed list admits every role.
func RunAuthorize(ctx context.Context, token string, allowed []account.Role, d Deps) (Principal, error) {
	d.normalize()
	if !d.ready() || d.VerifyToken == nil {
		return Principal{}, d.Errors.EngineNotReady
	}
	start := d.Now()
	defer func() { d.Observe(d.Metrics.AuthorizeLatency, d.Now().Sub(start)) }()

	if token == "" {
		return Principal{}, d.denyUnauthorized(ctx, "", d.Errors.Unauthorized)
	}
	res := d.VerifyToken(token)
	if !res.Valid || res.AccountID == "" {
		err := d.Errors.Unauthorized
		if res.Expired && d.Errors.TokenExpired != nil {
			err = fmt.Errorf("%w: %w", d.Errors.Unauthorized, d.Errors.TokenExpired)
		}
		return Principal{}, d.denyUnauthorized(ctx, "", err)
	}

	acct, err := d.Store.GetByID(ctx, res.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return Principal{}, d.denyUnauthorized(ctx, res.AccountID, d.Errors.Unauthorized)
		}
		return Principal{}, d.mapStoreError(err)
	}
	if !acct.IsVerified || !acct.IsActive {
		return Principal{}, d.denyForbidden(ctx, acct.ID, "account_state")
	}
	if len(allowed) > 0 && !acct.Role.In(allowed) {
		return Principal{}, d.denyForbidden(ctx, acct.ID, "role")
	}

	d.MetricInc(d.Metrics.AuthorizeSuccess)
	return Principal{AccountID: acct.ID, Role: acct.Role, Profile: acct.Profile()}, nil
}

// RunAuthorizeOptional never fails: any problem resolving the token yields an
// anonymous caller.
func RunAuthorizeOptional(ctx context.Context, token string, d Deps) (Principal, bool) {
	if token == "" {
		return Principal{}, false
	}
	p, err := RunAuthorize(ctx, token, nil, d)
	if err != nil {
		return Principal{}, false
	}
	return p, true
}

func (d *Deps) denyUnauthorized(ctx context.Context, accountID string, err error) error {
	d.MetricInc(d.Metrics.AuthorizeUnauthorized)
	d.EmitAudit(ctx, d.Events.AuthorizeDenied, false, accountID, err, func() map[string]string {
		return map[string]string{"reason": "unauthenticated"}
	})
	return err
}

func (d *Deps) denyForbidden(ctx context.Context, accountID, reason string) error {
	d.MetricInc(d.Metrics.AuthorizeForbidden)
	d.EmitAudit(ctx, d.Events.AuthorizeDenied, false, accountID, d.Errors.Forbidden, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return d.Errors.Forbidden
}
