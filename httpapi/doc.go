// Package httpapi exposes the engine over HTTP/JSON.
//
// Every response is an envelope:
//
//	{"success": bool, "message": "...", "data": {...}, "error": {"code", "message", "resolution", "details"}}
//
// Routes live under /api/auth. Sensitive routes (register, verify, resend,
// forgot and reset password) and login each sit behind their own rate
// limiter keyed by client IP. Protected routes take an
// "Authorization: Bearer <token>" header and are gated by the middleware
// package.
package httpapi
