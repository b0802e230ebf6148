package flows

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/notify"
	"github.com/messline/messauth/otp"
	"github.com/messline/messauth/password"
)

// TokenResult is the flow-level view of a verified session token.
type TokenResult struct {
	Valid     bool
	Expired   bool
	AccountID string
	Role      string
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   account.Profile
}

type Metrics struct {
	RegisterSuccess            int
	RegisterDuplicate          int
	RegisterCompensated        int
	VerifySuccess              int
	VerifyFailure              int
	ResendOTP                  int
	LoginSuccess               int
	LoginFailure               int
	LoginNotVerified           int
	LoginDeactivated           int
	PasswordRehash             int
	PasswordResetRequest       int
	PasswordResetConfirmOK     int
	PasswordResetConfirmFailed int
	PasswordChangeSuccess      int
	PasswordChangeInvalidOld   int
	ProfileUpdate              int
	NotificationFailure        int
	AuthorizeSuccess           int
	AuthorizeUnauthorized      int
	AuthorizeForbidden         int
	AuthorizeLatency           int
}

type Events struct {
	RegisterSuccess       string
	RegisterFailure       string
	RegisterCompensated   string
	VerifyOTP             string
	ResendOTP             string
	LoginSuccess          string
	LoginFailure          string
	PasswordResetRequest  string
	PasswordResetConfirm  string
	PasswordChangeSuccess string
	PasswordChangeFailure string
	ProfileUpdate         string
	AuthorizeDenied       string
}

type Errors struct {
	EngineNotReady           error
	DuplicateIdentity        error
	NotFound                 error
	AlreadyVerified          error
	InvalidOrExpiredCode     error
	InvalidCredentials       error
	NotVerified              error
	Deactivated              error
	NotificationFailure      error
	InvalidCurrentCredential error
	Unauthorized             error
	TokenExpired             error
	Forbidden                error
	Validation               error
	Conflict                 error
	StoreUnavailable         error
}

// Deps is built once by the Engine and passed by value to every flow.
type Deps struct {
	Store  account.Store
	Hasher password.Hasher
	Codes  otp.Source
	Notify func(context.Context, notify.Message) error

	IssueToken  func(accountID, role string) (string, time.Time, error)
	VerifyToken func(token string) TokenResult
	NewID       func() string
	Now         func() time.Time
	Logger      *slog.Logger

	OTPTTL           time.Duration
	NotifyTimeout    time.Duration
	DefaultRole      account.Role
	RegistrableRoles []account.Role
	RevealUnverified bool
	UpgradeOnLogin   bool
	// DummyHash is verified against when the login email is unknown so both
	// failure paths cost one hash comparison.
	DummyHash string

	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(ctx context.Context, event string, success bool, accountID string, err error, metadata func() map[string]string)

	Metrics Metrics
	Events  Events
	Errors  Errors
}

func (d *Deps) normalize() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.Observe == nil {
		d.Observe = func(int, time.Duration) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}

func (d *Deps) ready() bool {
	return d.Store != nil && d.Hasher != nil
}
