package redisstore

import (
	"encoding/json"
	"time"

	"github.com/messline/messauth/account"
)

const recordVersionV1 = 1

// record is the stored JSON shape. It is decoupled from account.Account so
// the wire format does not change when the domain type does.
type record struct {
	Format         int        `json:"v"`
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"password_hash"`
	Role           string     `json:"role"`
	Phone          string     `json:"phone,omitempty"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	IsVerified     bool       `json:"is_verified"`
	IsActive       bool       `json:"is_active"`
	OTP            string     `json:"otp,omitempty"`
	OTPExpiresAt   *time.Time `json:"otp_expires_at,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Version        int64      `json:"version"`
}

func encodeAccount(a *account.Account) ([]byte, error) {
	r := record{
		Format:         recordVersionV1,
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		PasswordHash:   a.PasswordHash,
		Role:           string(a.Role),
		Phone:          a.Phone,
		ProfilePicture: a.ProfilePicture,
		IsVerified:     a.IsVerified,
		IsActive:       a.IsActive,
		LastLogin:      a.LastLogin,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Version:        a.Version,
	}
	if a.OTP != nil {
		exp := a.OTP.ExpiresAt
		r.OTP = a.OTP.Code
		r.OTPExpiresAt = &exp
	}
	return json.Marshal(r)
}

func decodeAccount(data []byte) (*account.Account, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	a := &account.Account{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Role:           account.Role(r.Role),
		Phone:          r.Phone,
		ProfilePicture: r.ProfilePicture,
		IsVerified:     r.IsVerified,
		IsActive:       r.IsActive,
		LastLogin:      r.LastLogin,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Version:        r.Version,
	}
	if r.OTP != "" && r.OTPExpiresAt != nil {
		a.OTP = &account.Challenge{Code: r.OTP, ExpiresAt: *r.OTPExpiresAt}
	}
	return a, nil
}
