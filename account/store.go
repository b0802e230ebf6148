package account

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("account email already registered")
	ErrVersionConflict = errors.New("account modified concurrently")
)

// Store persists accounts. Implementations must be safe for concurrent use.
//
// Update is a compare-and-swap on Version: it succeeds only when the stored
// version equals acct.Version, and on success sets acct.Version to the new
// stored version. A mismatch returns ErrVersionConflict.
type Store interface {
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, acct *Account) error
	Delete(ctx context.Context, id string) error
}
