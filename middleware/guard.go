package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/messline/messauth"
)

// Authorizer resolves bearer tokens. *messauth.Engine satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, token string, allowed ...messauth.Role) (messauth.Principal, error)
	AuthorizeOptional(ctx context.Context, token string) (messauth.Principal, bool)
}

// DenyFunc writes the refusal for a request the guard rejected. err matches
// messauth.ErrUnauthorized or messauth.ErrForbidden, or is a backend failure.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

type Option func(*options)

type options struct {
	deny DenyFunc
}

// WithDeny replaces the plain-text refusal writer.
func WithDeny(fn DenyFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.deny = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{deny: defaultDeny}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Guard refuses requests without a valid bearer token and attaches the
// resolved principal to the request context.
func Guard(auth Authorizer, opts ...Option) func(http.Handler) http.Handler {
	return RequireRoles(auth, nil, opts...)
}

// RequireRoles is Guard with a role allowlist. A nil or empty list admits
// every role.
func RequireRoles(auth Authorizer, roles []messauth.Role, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				o.deny(w, r, messauth.ErrUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				o.deny(w, r, messauth.ErrUnauthorized)
				return
			}

			principal, err := auth.Authorize(r.Context(), token, roles...)
			if err != nil {
				o.deny(w, r, err)
				return
			}

			ctx := messauth.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional never refuses. A valid token attaches its principal; anything else
// lets the request through anonymously.
func Optional(auth Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth != nil {
				if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
					if principal, ok := auth.AuthorizeOptional(r.Context(), token); ok {
						r = r.WithContext(messauth.WithPrincipal(r.Context(), principal))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, messauth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, messauth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
