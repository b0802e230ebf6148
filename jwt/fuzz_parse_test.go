package jwt

import (
	"testing"
)

// FuzzVerify feeds arbitrary strings to Verify. Invalid inputs must come back
// as structured failures, never panics.
func FuzzVerify(f *testing.F) {
	mgr, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "fuzz"})
	if err != nil {
		f.Fatal(err)
	}

	valid, _, err := mgr.Issue("acc-1", "user")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJIUzI1NiJ9.e30.x")

	f.Fuzz(func(t *testing.T, token string) {
		v := mgr.Verify(token)
		if v.Valid && v.AccountID == "" {
			t.Fatal("valid verification without account id")
		}
		if !v.Valid && v.Failure == FailureNone {
			t.Fatal("invalid verification without failure kind")
		}
	})
}
