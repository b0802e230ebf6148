package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// Floors below which a configuration or a stored digest is rejected.
const (
	minMemoryKB   = 8 * 1024
	minSaltLength = 16
	minKeyLength  = 16
	maxKeyLength  = 1 << 10
)

// Argon2Config holds argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns interactive-login parameters: 64 MiB, three
// passes, two lanes.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Argon2Config) validate() error {
	var problems []string
	if c.Memory < minMemoryKB {
		problems = append(problems, fmt.Sprintf("memory must be >= %d KiB", minMemoryKB))
	}
	if c.Time < 1 {
		problems = append(problems, "time must be >= 1")
	}
	if c.Parallelism < 1 {
		problems = append(problems, "parallelism must be >= 1")
	}
	if c.SaltLength < minSaltLength {
		problems = append(problems, fmt.Sprintf("salt length must be >= %d", minSaltLength))
	}
	if c.KeyLength < minKeyLength || c.KeyLength > maxKeyLength {
		problems = append(problems, fmt.Sprintf("key length must be within [%d, %d]", minKeyLength, maxKeyLength))
	}
	if len(problems) > 0 {
		return oops.Code("PASSWORD_CONFIG_INVALID").Errorf("argon2id: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Argon2 hashes credentials with argon2id and encodes them in PHC format
// with unpadded base64 salt and key.
type Argon2 struct {
	config Argon2Config
}

// NewArgon2 rejects configurations below the cost floor.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

func (a *Argon2) Algorithm() string { return algorithmID }

func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("PASSWORD_SALT_FAILED").Wrap(err)
	}
	d := digest{
		memory:  a.config.Memory,
		time:    a.config.Time,
		threads: a.config.Parallelism,
		salt:    salt,
		key:     argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength),
	}
	return d.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	d, err := parseDigest(encodedHash)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.threads, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash is cheaper than the current
// configuration in any dimension, or differs in key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	d, err := parseDigest(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := d.memory < a.config.Memory ||
		d.time < a.config.Time ||
		d.threads < a.config.Parallelism ||
		uint32(len(d.key)) != a.config.KeyLength
	return weaker, nil
}

// digest is one decoded $argon2id$ string.
type digest struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (d digest) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, d.memory, d.time, d.threads,
		base64.RawStdEncoding.EncodeToString(d.salt),
		base64.RawStdEncoding.EncodeToString(d.key),
	)
}

func malformed(reason string) error {
	return oops.Code("PASSWORD_HASH_MALFORMED").With("reason", reason).Wrap(ErrUnsupportedHash)
}

func parseDigest(encoded string) (digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return digest{}, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return digest{}, malformed("version")
	}
	if version != argon2.Version {
		return digest{}, malformed("unsupported version")
	}

	var memory, time, threads uint32
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil || n != 3 {
		return digest{}, malformed("parameters")
	}
	if memory < minMemoryKB || time < 1 || threads < 1 || threads > 255 {
		return digest{}, malformed("parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minSaltLength {
		return digest{}, malformed("salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < minKeyLength || len(key) > maxKeyLength {
		return digest{}, malformed("key")
	}

	return digest{memory: memory, time: time, threads: uint8(threads), salt: salt, key: key}, nil
}
