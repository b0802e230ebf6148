package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/messline/messauth/account"
)

const maxWriteRetries = 3

func (d *Deps) mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, account.ErrNotFound):
		return d.Errors.NotFound
	case errors.Is(err, account.ErrVersionConflict):
		return d.Errors.Conflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", d.Errors.StoreUnavailable, err)
	}
}

func (d *Deps) loadByEmail(ctx context.Context, email string) (*account.Account, error) {
	acct, err := d.Store.GetByEmail(ctx, email)
	if err != nil {
		return nil, d.mapStoreError(err)
	}
	return acct, nil
}

func (d *Deps) loadByID(ctx context.Context, id string) (*account.Account, error) {
	acct, err := d.Store.GetByID(ctx, id)
	if err != nil {
		return nil, d.mapStoreError(err)
	}
	return acct, nil
}

// mutateByID re-reads the record on a version conflict and applies fn again.
// fn must be safe to repeat against a fresh snapshot.
func (d *Deps) mutateByID(ctx context.Context, id string, fn func(*account.Account) error) (*account.Account, error) {
	var lastErr error
	for i := 0; i < maxWriteRetries; i++ {
		acct, err := d.loadByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(acct); err != nil {
			return nil, err
		}
		err = d.Store.Update(ctx, acct)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, account.ErrVersionConflict) {
			return nil, d.mapStoreError(err)
		}
		lastErr = err
	}
	return nil, d.mapStoreError(lastErr)
}
