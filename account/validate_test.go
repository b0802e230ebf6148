package account

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Passw0rd", true},
		{"Ab1def", true},
		{"Ab1de", false},
		{"password1", false},
		{"PASSWORD1", false},
		{"Password", false},
		{"Aa1" + strings.Repeat("x", PasswordMaxBytes-3), true},
		{"Aa1" + strings.Repeat("x", PasswordMaxBytes-2), false},
		{"Aa1" + strings.Repeat("é", 35), false},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err == nil) != tt.ok {
			t.Fatalf("ValidatePassword(%q) err=%v, want ok=%v", tt.password, err, tt.ok)
		}
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"Al", "Alice Smith", "Mary Jane Watson"}
	invalid := []string{"A", "", "R2D2", "Alice-Smith", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxy"}

	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Fatalf("ValidateName(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Fatalf("ValidateName(%q) expected error", name)
		}
	}
}

func TestValidatePhoneAndEmail(t *testing.T) {
	if err := ValidatePhone(""); err != nil {
		t.Fatalf("empty phone should be accepted: %v", err)
	}
	if err := ValidatePhone("+91 98765-43210"); err != nil {
		t.Fatalf("valid phone rejected: %v", err)
	}
	if err := ValidatePhone("call me"); err == nil {
		t.Fatal("expected invalid phone")
	}
	if err := ValidateEmail("alice@x.com"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if err := ValidateEmail("alice@x"); err == nil {
		t.Fatal("expected invalid email")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@X.Com "); got != "alice@x.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

func TestValidatorAggregates(t *testing.T) {
	var v Validator
	v.Check("name", ValidateName("A"))
	v.Check("otp", ValidateOTPCode("12345"))
	v.Check("email", ValidateEmail("ok@x.com"))

	err := v.Err()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", verr.Fields)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Mess-Owner ")
	if err != nil || r != RoleOwner {
		t.Fatalf("ParseRole = %v, %v", r, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
