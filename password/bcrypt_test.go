package password

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestBcrypt(t *testing.T, cost int) *Bcrypt {
	t.Helper()

	h, err := NewBcrypt(cost)
	if err != nil {
		t.Fatalf("NewBcrypt(%d) error: %v", cost, err)
	}
	return h
}

func TestBcryptHashAndVerify(t *testing.T) {
	h := newTestBcrypt(t, bcrypt.MinCost)

	hash, err := h.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	ok, err := h.Verify("Passw0rd", hash)
	if err != nil || !ok {
		t.Fatalf("Verify ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("passw0rd", hash)
	if err != nil {
		t.Fatalf("Verify mismatch returned error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch")
	}
}

func TestBcryptRejectsBadCost(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected cost above max to fail")
	}
	if _, err := NewBcrypt(bcrypt.MinCost - 1); err == nil {
		t.Fatal("expected cost below min to fail")
	}
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	weak := newTestBcrypt(t, bcrypt.MinCost)
	strong := newTestBcrypt(t, bcrypt.MinCost+1)

	hash, err := weak.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	up, err := strong.NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatalf("expected upgrade for weaker cost, got %v err=%v", up, err)
	}
	up, err = weak.NeedsUpgrade(hash)
	if err != nil || up {
		t.Fatalf("expected no upgrade for same cost, got %v err=%v", up, err)
	}
}

func TestBcryptVerifyMalformed(t *testing.T) {
	h := newTestBcrypt(t, bcrypt.MinCost)
	if _, err := h.Verify("x", "plain"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
}

func TestBcryptConcurrentHashing(t *testing.T) {
	h := newTestBcrypt(t, bcrypt.MinCost)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash("Passw0rd")
			if err != nil {
				errs <- err
				return
			}
			if ok, err := h.Verify("Passw0rd", hash); err != nil || !ok {
				errs <- errors.New("verify failed")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent hashing: %v", err)
	}
}

func TestMultiVerifiesLegacyAndRequestsUpgrade(t *testing.T) {
	argon, err := NewArgon2(DefaultArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	bc := newTestBcrypt(t, bcrypt.MinCost)

	m, err := NewMulti(bc, argon)
	if err != nil {
		t.Fatalf("NewMulti error: %v", err)
	}

	legacy, err := argon.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("argon Hash error: %v", err)
	}

	ok, err := m.Verify("Passw0rd", legacy)
	if err != nil || !ok {
		t.Fatalf("Multi.Verify legacy ok=%v err=%v", ok, err)
	}
	up, err := m.NeedsUpgrade(legacy)
	if err != nil || !up {
		t.Fatalf("expected legacy digest to need upgrade, got %v err=%v", up, err)
	}

	current, err := m.Hash("Passw0rd")
	if err != nil {
		t.Fatalf("Multi.Hash error: %v", err)
	}
	if AlgorithmOf(current) != "bcrypt" {
		t.Fatalf("expected primary algorithm, got %q", AlgorithmOf(current))
	}
	up, err = m.NeedsUpgrade(current)
	if err != nil || up {
		t.Fatalf("expected current digest to be fresh, got %v err=%v", up, err)
	}

	if _, err := m.Verify("Passw0rd", "$unknown$"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
}

func TestBcryptRejectsOverlongPassword(t *testing.T) {
	h := newTestBcrypt(t, bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("x", 72)); err != nil {
		t.Fatalf("72-byte password: %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", 73)); err == nil {
		t.Fatal("expected 73-byte password to fail")
	}
}
