// Package appconfig loads the messauthd configuration.
//
// Sources, lowest precedence first: flag defaults, the YAML file, the
// MESSAUTH_* secret variables, then flags set on the command line.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/messline/messauth"
	"github.com/messline/messauth/notify"
	"github.com/spf13/pflag"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config is the daemon configuration. Field tags are the koanf keys.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	Redis     RedisConfig     `koanf:"redis"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	SMTP      SMTPConfig      `koanf:"smtp"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool `koanf:"trust_proxy"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type PostgresConfig struct {
	DSN            string `koanf:"dsn"`
	MigrateOnStart bool   `koanf:"migrate_on_start"`
}

// SMTPConfig selects the mail notifier. An empty Host logs messages instead.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	TLS      bool   `koanf:"tls"`
}

type AuthConfig struct {
	TokenSecret       string        `koanf:"token_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	Issuer            string        `koanf:"issuer"`
	OTPTTL            time.Duration `koanf:"otp_ttl"`
	PasswordAlgorithm string        `koanf:"password_algorithm"`
	BcryptCost        int           `koanf:"bcrypt_cost"`
	RevealUnverified  bool          `koanf:"reveal_unverified"`
	NotifyTimeout     time.Duration `koanf:"notify_timeout"`
	Audit             bool          `koanf:"audit"`
}

type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	SensitiveLimit  int           `koanf:"sensitive_limit"`
	SensitiveWindow time.Duration `koanf:"sensitive_window"`
	LoginLimit      int           `koanf:"login_limit"`
	LoginWindow     time.Duration `koanf:"login_window"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// envKeys maps the secret variables onto koanf keys. Secrets are the only
// values read from the environment.
var envKeys = map[string]string{
	"MESSAUTH_TOKEN_SECRET":   "auth.token_secret",
	"MESSAUTH_POSTGRES_DSN":   "postgres.dsn",
	"MESSAUTH_REDIS_PASSWORD": "redis.password",
	"MESSAUTH_SMTP_PASSWORD":  "smtp.password",
}

// RegisterFlags declares every key on fs with its default value.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http.addr", ":8080", "listen address")
	fs.Duration("http.read_timeout", 10*time.Second, "HTTP read timeout")
	fs.Duration("http.write_timeout", 30*time.Second, "HTTP write timeout")
	fs.Duration("http.shutdown_timeout", 15*time.Second, "graceful shutdown timeout")
	fs.Bool("http.trust_proxy", false, "take client IP from X-Forwarded-For")

	fs.String("log.level", "info", "log level (debug, info, warn, error)")
	fs.String("log.format", "json", "log format (json, text)")

	fs.String("store.driver", DriverMemory, "account store (memory, redis, postgres)")

	fs.String("redis.addr", "localhost:6379", "redis address")
	fs.Int("redis.db", 0, "redis database")
	fs.String("redis.prefix", "acct", "redis key prefix")

	fs.Bool("postgres.migrate_on_start", false, "apply migrations before serving")

	fs.String("smtp.host", "", "SMTP host; empty logs notifications instead")
	fs.Int("smtp.port", 587, "SMTP port")
	fs.String("smtp.username", "", "SMTP username")
	fs.String("smtp.from", "no-reply@localhost", "sender address")
	fs.Bool("smtp.tls", true, "require STARTTLS")

	fs.Duration("auth.token_ttl", 24*time.Hour, "session token lifetime")
	fs.String("auth.issuer", "messauth", "token issuer")
	fs.Duration("auth.otp_ttl", 10*time.Minute, "one-time code lifetime")
	fs.String("auth.password_algorithm", "bcrypt", "password hash (bcrypt, argon2id)")
	fs.Int("auth.bcrypt_cost", 12, "bcrypt cost")
	fs.Bool("auth.reveal_unverified", true, "forgot-password reports unverified accounts")
	fs.Duration("auth.notify_timeout", 15*time.Second, "notifier call timeout")
	fs.Bool("auth.audit", true, "log audit events")

	fs.Bool("ratelimit.enabled", true, "rate limit sensitive routes")
	fs.Int("ratelimit.sensitive_limit", 5, "requests per window on sensitive routes")
	fs.Duration("ratelimit.sensitive_window", time.Minute, "sensitive route window")
	fs.Int("ratelimit.login_limit", 10, "login attempts per window")
	fs.Duration("ratelimit.login_window", 15*time.Minute, "login window")

	fs.Bool("metrics.enabled", true, "expose /metrics")
}

// Load reads path (optional) then overlays the environment and fs. fs must
// have been passed to RegisterFlags.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	for env, key := range envKeys {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return Config{}, fmt.Errorf("apply %s: %w", env, err)
			}
		}
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	return cfg, cfg.Validate()
}

// Validate checks daemon-level settings. Engine settings are checked again
// by the engine builder.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis store"))
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, redis, postgres", c.Store.Driver))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Auth.TokenSecret == "" {
		errs = append(errs, errors.New("auth.token_secret is required (or MESSAUTH_TOKEN_SECRET)"))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.SensitiveLimit <= 0 || c.RateLimit.SensitiveWindow <= 0 {
			errs = append(errs, errors.New("ratelimit.sensitive_limit and sensitive_window must be positive"))
		}
		if c.RateLimit.LoginLimit <= 0 || c.RateLimit.LoginWindow <= 0 {
			errs = append(errs, errors.New("ratelimit.login_limit and login_window must be positive"))
		}
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp.from is required when smtp.host is set"))
	}
	return errors.Join(errs...)
}

// EngineConfig projects the auth settings onto the engine defaults.
func (c Config) EngineConfig() messauth.Config {
	cfg := messauth.DefaultConfig()
	cfg.Token.Secret = []byte(c.Auth.TokenSecret)
	if c.Auth.TokenTTL > 0 {
		cfg.Token.TTL = c.Auth.TokenTTL
	}
	if c.Auth.Issuer != "" {
		cfg.Token.Issuer = c.Auth.Issuer
	}
	if c.Auth.OTPTTL > 0 {
		cfg.OTP.TTL = c.Auth.OTPTTL
	}
	if c.Auth.PasswordAlgorithm != "" {
		cfg.Password.Algorithm = c.Auth.PasswordAlgorithm
	}
	if c.Auth.BcryptCost > 0 {
		cfg.Password.BcryptCost = c.Auth.BcryptCost
	}
	if c.Auth.NotifyTimeout > 0 {
		cfg.Notify.Timeout = c.Auth.NotifyTimeout
	}
	cfg.PasswordReset.RevealUnverified = c.Auth.RevealUnverified
	cfg.Audit.Enabled = c.Auth.Audit
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled
	return cfg
}

// SMTPNotifierConfig returns the go-mail settings and whether SMTP is
// configured at all.
func (c Config) SMTPNotifierConfig() (notify.SMTPConfig, bool) {
	if c.SMTP.Host == "" {
		return notify.SMTPConfig{}, false
	}
	return notify.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		AppName:  c.Auth.Issuer,
		TLS:      c.SMTP.TLS,
	}, true
}
