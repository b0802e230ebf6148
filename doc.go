// Package messauth is the authentication engine of the mess management
// backend: email+password registration gated by an emailed one-time code,
// password recovery through a second code, signed session tokens, and a
// role-based access guard.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// messauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types (Profile, Session, Principal, MetricsSnapshot). Flow
// orchestration and audit dispatch live under internal/. Persistence is
// supplied through [account.Store] and delivery through [notify.Notifier].
//
// # What this package must NOT do
//
//   - Expose credential hashes or pending codes through any return value.
//   - Read the environment or global state at request time.
//   - Perform I/O outside of Engine methods (Build only allocates and validates).
//   - Import a sub-package that re-imports messauth.
package messauth
