package messauth

import (
	"time"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/flows"
)

// Principal is the authorized caller resolved by the access guard.
type Principal = flows.Principal

// Profile is the public view of an account. It never carries the credential
// hash or the pending code.
type Profile = account.Profile

// Role is an account's authorization role.
type Role = account.Role

const (
	RoleUser  = account.RoleUser
	RoleOwner = account.RoleOwner
	RoleAdmin = account.RoleAdmin
)

// RegisterInput is the raw registration request. Role may be empty to take
// the configured default.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
	Phone    string
}

// ProfileUpdate holds the optional fields of UpdateProfile. Unset fields are
// left untouched.
type ProfileUpdate = account.ProfileUpdate

// Session is returned by Login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   Profile
}
