package account

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("validation failed")

const (
	NameMinLength     = 2
	NameMaxLength     = 50
	PasswordMinLength = 6
	// PasswordMaxBytes is the longest input bcrypt hashes without error.
	PasswordMaxBytes = 72
	OTPLength        = 6
)

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s-]+$`)
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
)

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field failures. It matches ErrInvalid.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validator accumulates field errors across several checks.
type Validator struct {
	fields []FieldError
}

// Add records a failure for field.
func (v *Validator) Add(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

// Check records a failure for field when err is non-nil.
func (v *Validator) Check(field string, err error) {
	if err != nil {
		v.Add(field, err.Error())
	}
}

// Err returns the accumulated failures, or nil.
func (v *Validator) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// NormalizeEmail trims and lowercases an address. Lookups and uniqueness use
// the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("please provide a valid email")
	}
	return nil
}

func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < NameMinLength || n > NameMaxLength {
		return errors.New("name must be between 2 and 50 characters")
	}
	if !namePattern.MatchString(name) {
		return errors.New("name can only contain letters and spaces")
	}
	return nil
}

// ValidatePhone accepts an empty value (no phone on file).
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return errors.New("please provide a valid phone number")
	}
	return nil
}

// ValidatePassword enforces the password policy: at least six characters, at
// most 72 bytes, with an uppercase letter, a lowercase letter and a digit.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return errors.New("password must be at least 6 characters long")
	}
	if len(password) > PasswordMaxBytes {
		return errors.New("password must be at most 72 bytes long")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return errors.New("password must contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}

func ValidateOTPCode(code string) error {
	if !otpPattern.MatchString(code) {
		return errors.New("otp must be a 6-digit number")
	}
	return nil
}
