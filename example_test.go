package messauth_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/messline/messauth"
	"github.com/messline/messauth/notify"
	"github.com/messline/messauth/otp"
	"github.com/messline/messauth/store/memstore"
)

func exampleEngine() *messauth.Engine {
	cfg := messauth.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true

	engine, err := messauth.New().
		WithConfig(cfg).
		WithStore(memstore.New()).
		WithNotifier(notify.Func(func(context.Context, notify.Message) error { return nil })).
		WithOTPSource(otp.SourceFunc(func() (otp.Code, error) {
			return otp.Code{Value: "482913", ExpiresAt: time.Now().Add(otp.DefaultTTL)}, nil
		})).
		Build()
	if err != nil {
		panic(err)
	}
	return engine
}

// ExampleNew walks one account from registration to an authorized request.
func ExampleNew() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	if _, err := engine.Register(ctx, messauth.RegisterInput{
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		Password: "Passw0rd",
	}); err != nil {
		fmt.Println(err)
		return
	}

	_, err := engine.Login(ctx, "asha@example.com", "Passw0rd")
	fmt.Println(errors.Is(err, messauth.ErrNotVerified))

	profile, err := engine.VerifyOTP(ctx, "asha@example.com", "482913")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(profile.IsVerified, profile.Role)

	session, err := engine.Login(ctx, "asha@example.com", "Passw0rd")
	if err != nil {
		fmt.Println(err)
		return
	}
	principal, err := engine.Authorize(ctx, session.Token, messauth.RoleUser)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(principal.Profile.Email)

	_, err = engine.Authorize(ctx, session.Token, messauth.RoleAdmin)
	fmt.Println(errors.Is(err, messauth.ErrForbidden))
	// Output:
	// true
	// true user
	// asha@example.com
	// true
}

// ExampleEngine_MetricsSnapshot reads the in-process counters.
func ExampleEngine_MetricsSnapshot() {
	engine := exampleEngine()
	defer engine.Close()

	_, _ = engine.Login(context.Background(), "nobody@example.com", "Passw0rd")
	snapshot := engine.MetricsSnapshot()
	fmt.Println(snapshot.Counters[messauth.MetricLoginFailure])
	// Output: 1
}
