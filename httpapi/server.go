package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/messline/messauth"
	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/limiters"
	"github.com/messline/messauth/internal/logging"
	"github.com/messline/messauth/middleware"
)

// Engine is the part of *messauth.Engine the handlers call.
type Engine interface {
	middleware.Authorizer
	Register(ctx context.Context, in messauth.RegisterInput) (messauth.Profile, error)
	VerifyOTP(ctx context.Context, email, code string) (messauth.Profile, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (messauth.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, accountID string, update messauth.ProfileUpdate) (messauth.Profile, error)
	GetProfile(ctx context.Context, accountID string) (messauth.Profile, error)
	RecordRateLimit(ctx context.Context, scope string)
}

// RateLimit throttles one route group per client IP. A nil Limiter
// disables it.
type RateLimit struct {
	Limiter    limiters.Limiter
	RetryAfter time.Duration
}

type Options struct {
	Logger    *slog.Logger
	Sensitive RateLimit
	Login     RateLimit
	// TrustProxy takes the client IP from the first X-Forwarded-For entry.
	TrustProxy bool
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
}

type server struct {
	engine Engine
	opts   Options
	logger *slog.Logger
}

// New returns the routed handler.
func New(engine Engine, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &server{engine: engine, opts: opts, logger: logger}

	deny := middleware.WithDeny(s.writeError)
	authed := middleware.Guard(engine, deny)
	owners := middleware.RequireRoles(engine, []messauth.Role{messauth.RoleOwner, messauth.RoleAdmin}, deny)
	admins := middleware.RequireRoles(engine, []messauth.Role{messauth.RoleAdmin}, deny)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.limit(opts.Sensitive, "register", s.register))
	mux.HandleFunc("POST /api/auth/verify", s.limit(opts.Sensitive, "verify", s.verify))
	mux.HandleFunc("POST /api/auth/verify-otp", s.limit(opts.Sensitive, "verify", s.verify))
	mux.HandleFunc("POST /api/auth/login", s.limit(opts.Login, "login", s.login))
	mux.HandleFunc("POST /api/auth/forgot-password", s.limit(opts.Sensitive, "forgot_password", s.forgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", s.limit(opts.Sensitive, "reset_password", s.resetPassword))
	mux.HandleFunc("POST /api/auth/resend-otp", s.limit(opts.Sensitive, "resend_otp", s.resendOTP))

	mux.Handle("GET /api/auth/me", authed(http.HandlerFunc(s.getProfile)))
	mux.Handle("PUT /api/auth/me", authed(http.HandlerFunc(s.updateProfile)))
	mux.Handle("PUT /api/auth/change-password", authed(http.HandlerFunc(s.changePassword)))

	mux.Handle("GET /api/owner/ping", owners(http.HandlerFunc(s.ping)))
	mux.Handle("GET /api/admin/ping", admins(http.HandlerFunc(s.ping)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, http.StatusOK, "ok", nil)
	})
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeMapping(w, errorMapping{http.StatusNotFound, CodeNotFound, "Route not found", "Check the request path"}, nil)
	})

	return s.withRequestContext(mux)
}

// writeError maps err to its envelope. Unrecognized errors are logged and
// reported as internal errors.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapping, ok := mappingFor(err)
	if !ok {
		logging.LogError(r.Context(), s.logger, "request failed", err)
	}
	var details []account.FieldError
	var ve *account.ValidationError
	if errors.As(err, &ve) {
		details = ve.Fields
	}
	writeMapping(w, mapping, details)
}

func (s *server) limit(rl RateLimit, scope string, next http.HandlerFunc) http.HandlerFunc {
	if rl.Limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip := s.clientIP(r)
		err := rl.Limiter.Allow(r.Context(), scope+":"+ip)
		switch {
		case err == nil:
			next(w, r)
		case errors.Is(err, limiters.ErrRateLimited):
			s.engine.RecordRateLimit(r.Context(), scope)
			if rl.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Round(time.Second)/time.Second)))
			}
			s.writeError(w, r, messauth.ErrRateLimited)
		default:
			logging.LogError(r.Context(), s.logger, "rate limiter failed", err)
			writeMapping(w, errorMapping{http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable", "Try again later"}, nil)
		}
	}
}

func (s *server) clientIP(r *http.Request) string {
	if s.opts.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestContext tags the request with an id and the client IP, then
// logs the outcome.
func (s *server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ip := s.clientIP(r)

		ctx := logging.WithRequestID(r.Context(), id)
		ctx = messauth.WithClientIP(ctx, ip)
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ip,
		)
	})
}
