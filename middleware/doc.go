// Package middleware adapts the access guard to net/http.
//
// # Guards
//
//   - [Guard] refuses requests without a valid bearer token.
//   - [RequireRoles] additionally enforces a role allowlist.
//   - [Optional] attaches the caller when a valid token is present and never refuses.
//
// Each guard reads the Authorization header, calls the engine, and stores the
// resolved [messauth.Principal] with [messauth.WithPrincipal].
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to the engine).
//   - Make authorization decisions beyond pass/reject from the engine.
package middleware
