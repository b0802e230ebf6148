package httpapi

import (
	"net/http"
	"time"

	"github.com/messline/messauth"
	"github.com/messline/messauth/account"
)

type identity struct {
	Email string        `json:"email"`
	Name  string        `json:"name"`
	Role  messauth.Role `json:"role"`
}

func identityOf(p messauth.Profile) identity {
	return identity{Email: p.Email, Name: p.Name, Role: p.Role}
}

type userData struct {
	User messauth.Profile `json:"user"`
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Phone    string `json:"phone"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.engine.Register(r.Context(), messauth.RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Role:     messauth.Role(body.Role),
		Phone:    body.Phone,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Registration successful. Please check your email for verification code.", identityOf(profile))
}

func (s *server) verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.engine.VerifyOTP(r.Context(), body.Email, body.OTP)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Email verified successfully. You can now login.", identityOf(profile))
}

func (s *server) resendOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.engine.ResendOTP(r.Context(), body.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "New verification code sent to your email", nil)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.engine.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Login successful", struct {
		Token     string           `json:"token"`
		ExpiresAt time.Time        `json:"expiresAt"`
		User      messauth.Profile `json:"user"`
	}{session.Token, session.ExpiresAt, session.Profile})
}

func (s *server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.engine.ForgotPassword(r.Context(), body.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "If an account with this email exists, a password reset code has been sent.", nil)
}

func (s *server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.engine.ResetPassword(r.Context(), body.Email, body.OTP, body.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Password updated successfully. You can now login with your new password.", nil)
}

func (s *server) getProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := messauth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, r, messauth.ErrUnauthorized)
		return
	}

	profile, err := s.engine.GetProfile(r.Context(), principal.AccountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", userData{User: profile})
}

func (s *server) updateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := messauth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, r, messauth.ErrUnauthorized)
		return
	}

	// A present key is applied even when empty; an explicit "" phone clears it.
	var body struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	var update messauth.ProfileUpdate
	if body.Name != nil {
		update.Name = account.Some(*body.Name)
	}
	if body.Phone != nil {
		update.Phone = account.Some(*body.Phone)
	}

	profile, err := s.engine.UpdateProfile(r.Context(), principal.AccountID, update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Profile updated successfully", userData{User: profile})
}

func (s *server) changePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := messauth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, r, messauth.ErrUnauthorized)
		return
	}

	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.engine.ChangePassword(r.Context(), principal.AccountID, body.CurrentPassword, body.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Password changed successfully", nil)
}

func (s *server) ping(w http.ResponseWriter, r *http.Request) {
	principal, _ := messauth.PrincipalFromContext(r.Context())
	writeOK(w, http.StatusOK, "pong", struct {
		AccountID string        `json:"accountId"`
		Role      messauth.Role `json:"role"`
	}{principal.AccountID, principal.Role})
}
