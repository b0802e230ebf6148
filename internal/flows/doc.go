// Package flows contains the orchestrators behind every Engine operation.
//
// Each Run* function takes the request values plus a [Deps] struct and
// coordinates the account store, hasher, code source, notifier, token issuer,
// audit and metrics through it. Flows hold no state between calls.
//
// # Architecture boundaries
//
// Flows decide the order of checks and which sentinel error to return. They do
// NOT own any resource: the Engine builds Deps once and keeps ownership.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import messauth (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through Deps.
//   - Log plaintext passwords, codes, or tokens.
package flows
