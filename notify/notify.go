// Package notify delivers one-time codes to account holders.
//
// The authentication engine only sees [Notifier]: a call either succeeds or
// fails. Transport details (SMTP, logging) live behind that interface.
package notify

import (
	"context"
	"errors"
	"time"
)

// Kind selects the message template.
type Kind string

const (
	KindRegistrationOTP  Kind = "registration-otp"
	KindPasswordResetOTP Kind = "password-reset-otp"
)

// ErrTransport wraps every delivery failure.
var ErrTransport = errors.New("notification transport failure")

// Message is one outbound code notification.
type Message struct {
	To        string
	Name      string
	Code      string
	Kind      Kind
	ExpiresIn time.Duration
}

// Notifier sends a message. Implementations must honor ctx cancellation.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Func adapts a function to [Notifier].
type Func func(ctx context.Context, msg Message) error

func (f Func) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
