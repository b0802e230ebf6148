// Package limiters provides the request rate limiters used by the HTTP layer.
//
// # Limiters
//
//   - [FixedWindow] counts requests per key in Redis (INCR + EXPIRE).
//   - [Local] keeps an in-process token bucket per key.
//   - [Failover] uses a primary limiter and falls back to a secondary one while
//     the primary's backend is unreachable.
//
// All limiters are nil-safe: calling Allow on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import messauth or any sibling internal package.
//   - Make policy decisions beyond counting. Callers decide consequences.
package limiters
