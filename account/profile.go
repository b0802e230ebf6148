package account

import "time"

// Profile is the public view of an account. It never carries credential or
// challenge material.
type Profile struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	IsVerified     bool       `json:"isVerified"`
	Phone          string     `json:"phone,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Profile projects the record onto its public view.
func (a *Account) Profile() Profile {
	p := Profile{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		Role:           a.Role,
		IsVerified:     a.IsVerified,
		Phone:          a.Phone,
		ProfilePicture: a.ProfilePicture,
		CreatedAt:      a.CreatedAt,
	}
	if a.LastLogin != nil {
		t := *a.LastLogin
		p.LastLogin = &t
	}
	return p
}
