package flows

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVerifyOTPMarksVerifiedAndClearsCode(t *testing.T) {
	h := newHarness(t)
	h.register(t, "asha@example.com")
	code := h.notifier.last(t).Code

	p, err := RunVerifyOTP(context.Background(), "asha@example.com", code, h.deps)
	if err != nil {
		t.Fatalf("RunVerifyOTP: %v", err)
	}
	if !p.IsVerified {
		t.Fatal("profile should be verified")
	}
	if h.stored(t, "asha@example.com").OTP != nil {
		t.Fatal("challenge must be cleared after use")
	}

	if _, err := RunVerifyOTP(context.Background(), "asha@example.com", code, h.deps); !errors.Is(err, errVerified) {
		t.Fatalf("expected already verified, got %v", err)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	h := newHarness(t)
	h.register(t, "asha@example.com")

	if _, err := RunVerifyOTP(context.Background(), "asha@example.com", "000000", h.deps); !errors.Is(err, errBadCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if h.stored(t, "asha@example.com").IsVerified {
		t.Fatal("wrong code must not verify")
	}
}

func TestVerifyOTPExpiredCodeIsCleared(t *testing.T) {
	h := newHarness(t)
	h.register(t, "asha@example.com")
	code := h.notifier.last(t).Code

	h.clock.Advance(10 * time.Minute)
	if _, err := RunVerifyOTP(context.Background(), "asha@example.com", code, h.deps); !errors.Is(err, errBadCode) {
		t.Fatalf("expected invalid code at expiry instant, got %v", err)
	}
	if h.stored(t, "asha@example.com").OTP != nil {
		t.Fatal("expired challenge should be removed")
	}
}

func TestVerifyOTPUnknownEmail(t *testing.T) {
	h := newHarness(t)
	if _, err := RunVerifyOTP(context.Background(), "nobody@example.com", "123456", h.deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResendOTPReplacesCode(t *testing.T) {
	h := newHarness(t)
	h.register(t, "asha@example.com")
	first := h.notifier.last(t).Code

	if err := RunResendOTP(context.Background(), "asha@example.com", h.deps); err != nil {
		t.Fatalf("RunResendOTP: %v", err)
	}
	second := h.notifier.last(t).Code
	if first == second {
		t.Fatal("resend should issue a new code")
	}

	if _, err := RunVerifyOTP(context.Background(), "asha@example.com", first, h.deps); !errors.Is(err, errBadCode) {
		t.Fatalf("old code must stop working, got %v", err)
	}
	if _, err := RunVerifyOTP(context.Background(), "asha@example.com", second, h.deps); err != nil {
		t.Fatalf("new code should verify: %v", err)
	}
}

func TestResendOTPVerifiedAccount(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t, "asha@example.com")
	if err := RunResendOTP(context.Background(), "asha@example.com", h.deps); !errors.Is(err, errVerified) {
		t.Fatalf("expected already verified, got %v", err)
	}
}

func TestResendOTPDeliveryFailureWithdrawsCode(t *testing.T) {
	h := newHarness(t)
	h.register(t, "asha@example.com")
	h.notifier.fail = errTransportDown

	if err := RunResendOTP(context.Background(), "asha@example.com", h.deps); !errors.Is(err, errNotify) {
		t.Fatalf("expected notification failure, got %v", err)
	}
	acct := h.stored(t, "asha@example.com")
	if acct.OTP != nil {
		t.Fatal("undelivered code must be withdrawn")
	}
	if h.store.Len() != 1 {
		t.Fatal("resend failure must not delete the account")
	}
}
