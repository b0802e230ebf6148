package messauth

import (
	"context"

	"github.com/messline/messauth/internal/flows"
)

// Authorize resolves a bearer token to a principal. Invalid, expired or
// orphaned tokens return ErrUnauthorized (an expired token also matches
// ErrTokenExpired). Unverified or deactivated accounts, and accounts whose
// role is not in allowed, return ErrForbidden. An empty allowed list admits
// every role.
func (e *Engine) Authorize(ctx context.Context, token string, allowed ...Role) (Principal, error) {
	if e == nil {
		return Principal{}, ErrEngineNotReady
	}
	return flows.RunAuthorize(ctx, token, allowed, e.deps)
}

// AuthorizeOptional is Authorize without refusal: any failure yields
// ok=false and the request proceeds anonymously.
func (e *Engine) AuthorizeOptional(ctx context.Context, token string) (Principal, bool) {
	if e == nil {
		return Principal{}, false
	}
	return flows.RunAuthorizeOptional(ctx, token, e.deps)
}
