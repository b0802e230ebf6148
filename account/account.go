package account

import (
	"crypto/subtle"
	"errors"
	"time"
)

// Challenge is an outstanding one-time code and the instant it stops being
// accepted.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the challenge is no longer accepted at now.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Account is the durable identity record. Email is stored normalized.
type Account struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	Phone          string
	ProfilePicture string
	IsVerified     bool
	IsActive       bool
	OTP            *Challenge
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Version increases on every successful store write and guards
	// read-modify-write cycles.
	Version int64
}

// OTPCheck is the outcome of matching a submitted code against the record.
type OTPCheck uint8

const (
	OTPMatch OTPCheck = iota
	OTPMissing
	OTPExpired
	OTPMismatch
)

// CredentialVerifier checks a plaintext secret against a stored digest.
type CredentialVerifier interface {
	Verify(plaintext, encoded string) (bool, error)
}

// New builds an unverified, active account. The caller supplies the normalized
// email and the credential hash.
func New(id, name, email, passwordHash string, role Role, phone string, now time.Time) *Account {
	now = now.UTC()
	return &Account{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Phone:        phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IssueOTP replaces any outstanding challenge.
func (a *Account) IssueOTP(code string, expiresAt time.Time) {
	a.OTP = &Challenge{Code: code, ExpiresAt: expiresAt.UTC()}
}

// ClearOTP drops the outstanding challenge, if any.
func (a *Account) ClearOTP() {
	a.OTP = nil
}

// HasOTP reports whether a challenge is outstanding and equal to code.
func (a *Account) HasOTP(code string) bool {
	return a.OTP != nil && a.OTP.Code == code
}

// CheckOTP matches code against the outstanding challenge without mutating
// the record. The comparison is constant-time.
func (a *Account) CheckOTP(code string, now time.Time) OTPCheck {
	if a.OTP == nil || a.OTP.Code == "" || a.OTP.ExpiresAt.IsZero() {
		return OTPMissing
	}
	if a.OTP.Expired(now) {
		return OTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(a.OTP.Code), []byte(code)) != 1 {
		return OTPMismatch
	}
	return OTPMatch
}

// ErrNoCredential is returned when verification is attempted on a record
// without a credential hash.
var ErrNoCredential = errors.New("account has no credential")

// MarkVerified flips the verification flag and clears the challenge.
func (a *Account) MarkVerified(now time.Time) error {
	if a.PasswordHash == "" {
		return ErrNoCredential
	}
	a.IsVerified = true
	a.OTP = nil
	a.touch(now)
	return nil
}

// SetPasswordHash replaces the credential hash.
func (a *Account) SetPasswordHash(hash string, now time.Time) {
	a.PasswordHash = hash
	a.touch(now)
}

// RecordLogin stamps the last-login time.
func (a *Account) RecordLogin(now time.Time) {
	t := now.UTC()
	a.LastLogin = &t
	a.touch(now)
}

// Apply merges a profile update. Inputs are expected to be validated.
func (a *Account) Apply(u ProfileUpdate, now time.Time) {
	if name, ok := u.Name.Get(); ok {
		a.Name = name
	}
	if phone, ok := u.Phone.Get(); ok {
		a.Phone = phone
	}
	a.touch(now)
}

// VerifyCredential reports whether plaintext matches the stored hash.
// Any verifier error counts as a mismatch.
func (a *Account) VerifyCredential(v CredentialVerifier, plaintext string) bool {
	if a == nil || v == nil || a.PasswordHash == "" {
		return false
	}
	ok, err := v.Verify(plaintext, a.PasswordHash)
	return err == nil && ok
}

func (a *Account) touch(now time.Time) {
	a.UpdatedAt = now.UTC()
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.OTP != nil {
		otp := *a.OTP
		out.OTP = &otp
	}
	if a.LastLogin != nil {
		t := *a.LastLogin
		out.LastLogin = &t
	}
	return &out
}
