package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/notify"
	"github.com/messline/messauth/otp"
	"github.com/messline/messauth/password"
	"github.com/messline/messauth/store/memstore"
)

var (
	errNotReady      = errors.New("not ready")
	errDuplicate     = errors.New("duplicate")
	errNotFound      = errors.New("not found")
	errVerified      = errors.New("already verified")
	errBadCode       = errors.New("invalid or expired code")
	errBadCreds      = errors.New("invalid credentials")
	errNotVerified   = errors.New("not verified")
	errDeactivated   = errors.New("deactivated")
	errNotify        = errors.New("notification failure")
	errBadCurrent    = errors.New("invalid current credential")
	errUnauthorized  = errors.New("unauthorized")
	errTokenExpired  = errors.New("token expired")
	errForbidden     = errors.New("forbidden")
	errValidation    = errors.New("validation")
	errConflict      = errors.New("conflict")
	errStoreDown     = errors.New("store unavailable")
	errTransportDown = errors.New("smtp down")
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	fail error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) last(t *testing.T) notify.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no notification sent")
	}
	return n.sent[len(n.sent)-1]
}

type sequenceCodes struct {
	mu   sync.Mutex
	next int
	now  func() time.Time
	ttl  time.Duration
}

func (s *sequenceCodes) Generate() (otp.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return otp.Code{
		Value:     fmt.Sprintf("%06d", 123455+s.next),
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	deps     Deps
	store    *memstore.Store
	notifier *recordingNotifier
	clock    *clock
	metrics  map[int]int
	events   []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	hasher, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		t.Fatalf("dummy hash: %v", err)
	}

	h := &harness{
		store:    memstore.New(),
		notifier: &recordingNotifier{},
		clock:    &clock{now: time.Unix(1_700_000_000, 0).UTC()},
		metrics:  map[int]int{},
	}
	ids := 0
	var mu sync.Mutex

	h.deps = Deps{
		Store:  h.store,
		Hasher: hasher,
		Codes:  &sequenceCodes{now: h.clock.Now, ttl: 10 * time.Minute},
		Notify: h.notifier.Send,
		IssueToken: func(id, role string) (string, time.Time, error) {
			return "token:" + id + ":" + role, h.clock.Now().Add(24 * time.Hour), nil
		},
		VerifyToken: func(token string) TokenResult {
			if token == "expired" {
				return TokenResult{Expired: true}
			}
			rest, ok := strings.CutPrefix(token, "token:")
			if !ok {
				return TokenResult{}
			}
			i := strings.LastIndex(rest, ":")
			if i < 0 {
				return TokenResult{}
			}
			id, role := rest[:i], rest[i+1:]
			return TokenResult{Valid: true, AccountID: id, Role: role}
		},
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			ids++
			return fmt.Sprintf("acct-%d", ids)
		},
		Now:              h.clock.Now,
		OTPTTL:           10 * time.Minute,
		NotifyTimeout:    time.Second,
		DefaultRole:      account.RoleUser,
		RegistrableRoles: account.Roles,
		RevealUnverified: true,
		UpgradeOnLogin:   true,
		DummyHash:        dummy,
		MetricInc: func(id int) {
			mu.Lock()
			defer mu.Unlock()
			h.metrics[id]++
		},
		EmitAudit: func(_ context.Context, event string, success bool, _ string, _ error, _ func() map[string]string) {
			mu.Lock()
			defer mu.Unlock()
			h.events = append(h.events, fmt.Sprintf("%s:%t", event, success))
		},
		Metrics: Metrics{
			RegisterSuccess: 1, RegisterDuplicate: 2, RegisterCompensated: 3,
			VerifySuccess: 4, VerifyFailure: 5, ResendOTP: 6,
			LoginSuccess: 7, LoginFailure: 8, LoginNotVerified: 9, LoginDeactivated: 10,
			PasswordRehash: 11, PasswordResetRequest: 12,
			PasswordResetConfirmOK: 13, PasswordResetConfirmFailed: 14,
			PasswordChangeSuccess: 15, PasswordChangeInvalidOld: 16,
			ProfileUpdate: 17, NotificationFailure: 18,
			AuthorizeSuccess: 19, AuthorizeUnauthorized: 20, AuthorizeForbidden: 21,
		},
		Events: Events{
			RegisterSuccess: "register_success", RegisterFailure: "register_failure",
			RegisterCompensated: "register_compensated", VerifyOTP: "verify_otp",
			ResendOTP: "resend_otp", LoginSuccess: "login_success", LoginFailure: "login_failure",
			PasswordResetRequest: "password_reset_request", PasswordResetConfirm: "password_reset_confirm",
			PasswordChangeSuccess: "password_change_success", PasswordChangeFailure: "password_change_failure",
			ProfileUpdate: "profile_update", AuthorizeDenied: "authorize_denied",
		},
		Errors: Errors{
			EngineNotReady: errNotReady, DuplicateIdentity: errDuplicate, NotFound: errNotFound,
			AlreadyVerified: errVerified, InvalidOrExpiredCode: errBadCode, InvalidCredentials: errBadCreds,
			NotVerified: errNotVerified, Deactivated: errDeactivated, NotificationFailure: errNotify,
			InvalidCurrentCredential: errBadCurrent, Unauthorized: errUnauthorized, TokenExpired: errTokenExpired,
			Forbidden: errForbidden, Validation: errValidation, Conflict: errConflict, StoreUnavailable: errStoreDown,
		},
	}
	return h
}

func (h *harness) register(t *testing.T, email string) account.Profile {
	t.Helper()
	p, err := RunRegister(context.Background(), RegisterRequest{
		Name:     "Asha Rao",
		Email:    email,
		Password: "Secret1",
	}, h.deps)
	if err != nil {
		t.Fatalf("RunRegister(%s): %v", email, err)
	}
	return p
}

func (h *harness) registerVerified(t *testing.T, email string) account.Profile {
	t.Helper()
	h.register(t, email)
	if _, err := RunVerifyOTP(context.Background(), email, h.notifier.last(t).Code, h.deps); err != nil {
		t.Fatalf("RunVerifyOTP(%s): %v", email, err)
	}
	acct, err := h.store.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	return acct.Profile()
}

func (h *harness) stored(t *testing.T, email string) *account.Account {
	t.Helper()
	acct, err := h.store.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("GetByEmail(%s): %v", email, err)
	}
	return acct
}
