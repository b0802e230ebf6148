package password

import (
	"errors"
	"strings"
)

var (
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrUnsupportedHash = errors.New("unsupported password hash format")
)

// Hasher is a one-way credential hash. Implementations hold no mutable state
// and are safe for concurrent use.
type Hasher interface {
	Algorithm() string
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Multi hashes with a primary algorithm and verifies digests from any of the
// registered algorithms, so stored credentials survive an algorithm switch.
type Multi struct {
	primary Hasher
	byAlgo  map[string]Hasher
}

// NewMulti registers primary plus any legacy hashers.
func NewMulti(primary Hasher, legacy ...Hasher) (*Multi, error) {
	if primary == nil {
		return nil, errors.New("primary hasher required")
	}
	m := &Multi{
		primary: primary,
		byAlgo:  map[string]Hasher{primary.Algorithm(): primary},
	}
	for _, h := range legacy {
		if h == nil {
			continue
		}
		if _, ok := m.byAlgo[h.Algorithm()]; !ok {
			m.byAlgo[h.Algorithm()] = h
		}
	}
	return m, nil
}

func (m *Multi) Algorithm() string { return m.primary.Algorithm() }

func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *Multi) Verify(password, encodedHash string) (bool, error) {
	h, ok := m.byAlgo[AlgorithmOf(encodedHash)]
	if !ok {
		return false, ErrUnsupportedHash
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade is true for any digest not produced by the primary algorithm.
func (m *Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	if AlgorithmOf(encodedHash) != m.primary.Algorithm() {
		return true, nil
	}
	return m.primary.NeedsUpgrade(encodedHash)
}

// AlgorithmOf identifies the algorithm that produced encodedHash, or "".
func AlgorithmOf(encodedHash string) string {
	switch {
	case isBcryptHash(encodedHash):
		return bcryptAlgorithm
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return algorithmID
	}
	return ""
}
