// Package jwt issues and verifies session tokens: compact, signed, time-limited
// bearer credentials carrying an account id and role.
//
// [Manager.Verify] returns a [Verification] for every input, distinguishing
// expired tokens from malformed or forged ones.
package jwt
