package messauth

import (
	"log/slog"
	"time"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/audit"
	"github.com/messline/messauth/internal/flows"
	"github.com/messline/messauth/jwt"
	"github.com/messline/messauth/notify"
	"github.com/messline/messauth/otp"
	"github.com/messline/messauth/password"
)

// Engine runs the account state machine and the access guard. Build it with
// [Builder]; the zero value is not usable.
type Engine struct {
	config    Config
	store     account.Store
	hasher    password.Hasher
	codes     otp.Source
	notifier  notify.Notifier
	tokens    *jwt.Manager
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	clock     func() time.Time
	newID     func() string
	dummyHash string

	deps flows.Deps
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// flowDeps is evaluated once by Build.
func (e *Engine) flowDeps() flows.Deps {
	d := flows.Deps{
		Store:            e.store,
		Hasher:           e.hasher,
		Codes:            e.codes,
		NewID:            e.newID,
		Now:              e.now,
		Logger:           e.logger,
		OTPTTL:           e.config.OTP.TTL,
		NotifyTimeout:    e.config.Notify.Timeout,
		DefaultRole:      e.config.Account.DefaultRole,
		RegistrableRoles: e.config.Account.RegistrableRoles,
		RevealUnverified: e.config.PasswordReset.RevealUnverified,
		UpgradeOnLogin:   e.config.Password.UpgradeOnLogin,
		DummyHash:        e.dummyHash,
		MetricInc:        func(id int) { e.metricInc(MetricID(id)) },
		Observe: func(id int, d time.Duration) {
			if e.metrics != nil {
				e.metrics.Observe(MetricID(id), d)
			}
		},
		EmitAudit: e.emitAudit,
		Metrics: flows.Metrics{
			RegisterSuccess:            int(MetricRegisterSuccess),
			RegisterDuplicate:          int(MetricRegisterDuplicate),
			RegisterCompensated:        int(MetricRegisterCompensated),
			VerifySuccess:              int(MetricVerifySuccess),
			VerifyFailure:              int(MetricVerifyFailure),
			ResendOTP:                  int(MetricResendOTP),
			LoginSuccess:               int(MetricLoginSuccess),
			LoginFailure:               int(MetricLoginFailure),
			LoginNotVerified:           int(MetricLoginNotVerified),
			LoginDeactivated:           int(MetricLoginDeactivated),
			PasswordRehash:             int(MetricPasswordRehash),
			PasswordResetRequest:       int(MetricPasswordResetRequest),
			PasswordResetConfirmOK:     int(MetricPasswordResetConfirmSuccess),
			PasswordResetConfirmFailed: int(MetricPasswordResetConfirmFailure),
			PasswordChangeSuccess:      int(MetricPasswordChangeSuccess),
			PasswordChangeInvalidOld:   int(MetricPasswordChangeInvalidOld),
			ProfileUpdate:              int(MetricProfileUpdate),
			NotificationFailure:        int(MetricNotificationFailure),
			AuthorizeSuccess:           int(MetricAuthorizeSuccess),
			AuthorizeUnauthorized:      int(MetricAuthorizeUnauthorized),
			AuthorizeForbidden:         int(MetricAuthorizeForbidden),
			AuthorizeLatency:           int(MetricAuthorizeLatency),
		},
		Events: flows.Events{
			RegisterSuccess:       auditEventRegisterSuccess,
			RegisterFailure:       auditEventRegisterFailure,
			RegisterCompensated:   auditEventRegisterCompensated,
			VerifyOTP:             auditEventVerifyOTP,
			ResendOTP:             auditEventResendOTP,
			LoginSuccess:          auditEventLoginSuccess,
			LoginFailure:          auditEventLoginFailure,
			PasswordResetRequest:  auditEventPasswordResetRequest,
			PasswordResetConfirm:  auditEventPasswordResetConfirm,
			PasswordChangeSuccess: auditEventPasswordChangeSuccess,
			PasswordChangeFailure: auditEventPasswordChangeFailure,
			ProfileUpdate:         auditEventProfileUpdate,
			AuthorizeDenied:       auditEventAuthorizeDenied,
		},
		Errors: flows.Errors{
			EngineNotReady:           ErrEngineNotReady,
			DuplicateIdentity:        ErrDuplicateIdentity,
			NotFound:                 ErrNotFound,
			AlreadyVerified:          ErrAlreadyVerified,
			InvalidOrExpiredCode:     ErrInvalidOrExpiredCode,
			InvalidCredentials:       ErrInvalidCredentials,
			NotVerified:              ErrNotVerified,
			Deactivated:              ErrDeactivated,
			NotificationFailure:      ErrNotificationFailure,
			InvalidCurrentCredential: ErrInvalidCurrentCredential,
			Unauthorized:             ErrUnauthorized,
			TokenExpired:             ErrTokenExpired,
			Forbidden:                ErrForbidden,
			Validation:               ErrValidation,
			Conflict:                 ErrConflict,
			StoreUnavailable:         ErrStoreUnavailable,
		},
	}
	if e.notifier != nil {
		d.Notify = e.notifier.Send
	}
	if e.tokens != nil {
		d.IssueToken = e.tokens.Issue
		d.VerifyToken = func(token string) flows.TokenResult {
			v := e.tokens.Verify(token)
			return flows.TokenResult{
				Valid:     v.Valid,
				Expired:   v.Failure == jwt.FailureExpired,
				AccountID: v.AccountID,
				Role:      v.Role,
			}
		}
	}
	return d
}
