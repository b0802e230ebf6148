package messauth

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/messline/messauth/account"
	"github.com/messline/messauth/internal/audit"
	"github.com/messline/messauth/jwt"
	"github.com/messline/messauth/notify"
	"github.com/messline/messauth/otp"
	"github.com/messline/messauth/password"
)

// dummyPassword is hashed once at build time. Login verifies against it when
// the email is unknown.
const dummyPassword = "messauth-timing-equalizer"

// Builder collects the engine's collaborators. A Builder is single use.
type Builder struct {
	config Config

	store     account.Store
	notifier  notify.Notifier
	auditSink AuditSink
	logger    *slog.Logger
	codes     otp.Source
	clock     func() time.Time
	newID     func() string

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the account store. Required.
func (b *Builder) WithStore(store account.Store) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the code delivery channel. Required.
func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink enables the audit dispatcher and routes events to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithOTPSource replaces the crypto/rand code generator.
func (b *Builder) WithOTPSource(src otp.Source) *Builder {
	b.codes = src
	return b
}

// WithClock overrides the time source for OTP expiry, token issuance and
// audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithIDGenerator overrides the account id generator (UUIDv4 by default).
func (b *Builder) WithIDGenerator(newID func() string) *Builder {
	b.newID = newID
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("account store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	hasher, err := buildHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	codes := b.codes
	if codes == nil {
		gen, err := otp.NewGenerator(cfg.OTP.TTL, otp.WithClock(clock))
		if err != nil {
			return nil, err
		}
		codes = gen
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Token.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cfg.Token.Secret,
		PublicKey:     cfg.Token.PublicKey,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
		KeyID:         cfg.Token.KeyID,
		VerifyKeys:    cfg.Token.VerifyKeys,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:    cfg,
		store:     b.store,
		hasher:    hasher,
		codes:     codes,
		notifier:  b.notifier,
		tokens:    tokens,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		clock:     clock,
		newID:     newID,
		dummyHash: dummyHash,
	}
	if cfg.Audit.Enabled {
		e.audit = audit.NewDispatcher(audit.Config{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     logger,
		}, b.auditSink)
	}
	e.deps = e.flowDeps()

	b.built = true
	return e, nil
}

// buildHasher returns a verifier that hashes with the configured algorithm
// and still accepts digests from the other one when its parameters are usable.
func buildHasher(cfg PasswordConfig) (password.Hasher, error) {
	bc, bcErr := password.NewBcrypt(cfg.BcryptCost)
	argon, argonErr := password.NewArgon2(cfg.Argon2)

	if cfg.Algorithm == "argon2id" {
		if argonErr != nil {
			return nil, argonErr
		}
		if bcErr != nil {
			return password.NewMulti(argon)
		}
		return password.NewMulti(argon, bc)
	}

	if bcErr != nil {
		return nil, bcErr
	}
	if argonErr != nil {
		return password.NewMulti(bc)
	}
	return password.NewMulti(bc, argon)
}
