package flows

import (
	"context"
	"fmt"

	"github.com/messline/messauth/account"
	"github.com/messline/messauth/notify"
)

func (d *Deps) send(ctx context.Context, acct *account.Account, kind notify.Kind, code string) error {
	if d.Notify == nil {
		return fmt.Errorf("%w: notifier not configured", d.Errors.NotificationFailure)
	}

	sendCtx := ctx
	if d.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.NotifyTimeout)
		defer cancel()
	}

	err := d.Notify(sendCtx, notify.Message{
		To:        acct.Email,
		Name:      acct.Name,
		Code:      code,
		Kind:      kind,
		ExpiresIn: d.OTPTTL,
	})
	if err == nil {
		err = sendCtx.Err()
	}
	if err != nil {
		d.MetricInc(d.Metrics.NotificationFailure)
		d.Logger.WarnContext(ctx, "notification failed",
			"account_id", acct.ID,
			"kind", string(kind),
			"error", err,
		)
		return fmt.Errorf("%w: %v", d.Errors.NotificationFailure, err)
	}
	return nil
}

// issueAndNotify writes a fresh challenge and delivers it. When delivery
// fails the challenge is withdrawn again, provided nobody replaced it in the
// meantime. guard, when set, is re-checked against every fresh snapshot.
func (d *Deps) issueAndNotify(ctx context.Context, id string, kind notify.Kind, guard func(*account.Account) error) (*account.Account, error) {
	code, err := d.Codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("%w: code generation: %v", d.Errors.EngineNotReady, err)
	}

	acct, err := d.mutateByID(ctx, id, func(a *account.Account) error {
		if guard != nil {
			if err := guard(a); err != nil {
				return err
			}
		}
		a.IssueOTP(code.Value, code.ExpiresAt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sendErr := d.send(ctx, acct, kind, code.Value); sendErr != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		_, clearErr := d.mutateByID(cleanupCtx, id, func(a *account.Account) error {
			if a.HasOTP(code.Value) {
				a.ClearOTP()
			}
			return nil
		})
		if clearErr != nil {
			d.Logger.ErrorContext(ctx, "withdrawing undelivered otp failed", "account_id", id, "error", clearErr)
		}
		return acct, sendErr
	}
	return acct, nil
}
