// Package account defines the durable account record and the rules it enforces
// about its own state.
//
// # Invariants
//
//   - The OTP challenge is a single value: a code and its expiry are present
//     together or not at all.
//   - A verified account always carries a credential hash.
//   - A consumed or expired challenge is cleared and never matches twice.
//
// # Architecture boundaries
//
// This package owns the [Account] type, the [Profile] projection, input
// validation helpers, and the [Store] contract. Flow orchestration lives in the
// root package; concrete stores live under store/.
//
// # What this package must NOT do
//
//   - Hash passwords or generate codes (callers supply both).
//   - Expose credential or OTP material through [Profile].
//   - Perform I/O.
package account
