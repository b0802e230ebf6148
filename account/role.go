package account

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles an account may hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "mess-owner"
	RoleAdmin Role = "admin"
)

// Roles lists every known role in privilege order.
var Roles = []Role{RoleUser, RoleOwner, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole maps a wire value onto a Role. Matching ignores case and
// surrounding whitespace.
func ParseRole(value string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(value)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalid, value)
	}
	return r, nil
}

// In reports whether r appears in allowed.
func (r Role) In(allowed []Role) bool {
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}
