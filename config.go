package messauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/jwt"
	"github.com/messline/messauth/otp"
	"github.com/messline/messauth/password"
	"golang.org/x/crypto/bcrypt"
)

// Config is passed to the Builder once. The engine never reads the
// environment at request time; rotating the secret or a TTL means building a
// new engine.
type Config struct {
	Token         TokenConfig
	OTP           OTPConfig
	Password      PasswordConfig
	Account       AccountConfig
	PasswordReset PasswordResetConfig
	Notify        NotifyConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures session token issuance.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	// Secret is the HS256 key or the Ed25519 private key.
	Secret     []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig configures one-time code issuance.
type OTPConfig struct {
	TTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the credential hash. Digests from the other
// algorithm still verify and are rehashed on login when UpgradeOnLogin is set.
type PasswordConfig struct {
	Algorithm      string // "bcrypt" (default) or "argon2id"
	BcryptCost     int
	Argon2         password.Argon2Config
	UpgradeOnLogin bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration.
type AccountConfig struct {
	DefaultRole account.Role
	// RegistrableRoles lists the roles a caller may request at registration.
	RegistrableRoles []account.Role
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls ForgotPassword disclosure.
type PasswordResetConfig struct {
	// RevealUnverified makes ForgotPassword fail with ErrNotVerified for an
	// existing unverified account. When false the call returns the generic
	// acknowledgment and issues nothing.
	RevealUnverified bool
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig bounds each notifier call. A timeout counts as a failure.
type NotifyConfig struct {
	Timeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration that validates once Token.Secret is set.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           jwt.DefaultTTL,
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "messauth",
		},
		OTP: OTPConfig{
			TTL: otp.DefaultTTL,
		},
		Password: PasswordConfig{
			Algorithm:      "bcrypt",
			BcryptCost:     password.DefaultBcryptCost,
			Argon2:         password.DefaultArgon2Config(),
			UpgradeOnLogin: true,
		},
		Account: AccountConfig{
			DefaultRole:      account.RoleUser,
			RegistrableRoles: []account.Role{account.RoleUser, account.RoleOwner, account.RoleAdmin},
		},
		PasswordReset: PasswordResetConfig{
			RevealUnverified: true,
		},
		Notify: NotifyConfig{
			Timeout: 15 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if cfg.Token.VerifyKeys != nil {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	out.Account.RegistrableRoles = append([]account.Role(nil), cfg.Account.RegistrableRoles...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	switch jwt.SigningMethod(c.Token.SigningMethod) {
	case jwt.MethodHS256:
		if len(c.Token.Secret) < 32 {
			return errors.New("hs256 requires a Token Secret of at least 32 bytes")
		}
	case jwt.MethodEd25519:
		if len(c.Token.Secret) == 0 {
			return errors.New("ed25519 requires a private key in Token Secret")
		}
		if len(c.Token.PublicKey) == 0 && len(c.Token.VerifyKeys) == 0 {
			return errors.New("ed25519 requires Token PublicKey")
		}
	default:
		return errors.New("unsupported Token SigningMethod")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt":
		if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("Password BcryptCost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	case "argon2id":
		if _, err := password.NewArgon2(c.Password.Argon2); err != nil {
			return fmt.Errorf("Password Argon2: %w", err)
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// Account
	if !c.Account.DefaultRole.Valid() {
		return errors.New("Account DefaultRole is invalid")
	}
	if len(c.Account.RegistrableRoles) == 0 {
		return errors.New("Account RegistrableRoles must not be empty")
	}
	for _, r := range c.Account.RegistrableRoles {
		if !r.Valid() {
			return fmt.Errorf("Account RegistrableRoles contains invalid role %q", r)
		}
	}
	if !c.Account.DefaultRole.In(c.Account.RegistrableRoles) {
		return errors.New("Account DefaultRole must be registrable")
	}

	// Notify
	if c.Notify.Timeout <= 0 {
		return errors.New("Notify Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
