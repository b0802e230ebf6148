// Package pgstore implements account.Store on PostgreSQL through pgx. The
// schema ships as embedded golang-migrate migrations; see [Migrator].
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/messline/messauth/account"
	"github.com/samber/oops"
)

const (
	uniqueViolation = "23505"
	emailConstraint = "accounts_email_key"
	accountColumns  = `id, name, email, password_hash, role, phone, profile_picture,
		is_verified, is_active, otp_code, otp_expires_at, last_login,
		created_at, updated_at, version`
)

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool Pool
}

var _ account.Store = (*Store)(nil)

func New(pool Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, acct *account.Account) error {
	code, expires := otpColumns(acct)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
	`,
		acct.ID,
		acct.Name,
		acct.Email,
		acct.PasswordHash,
		string(acct.Role),
		acct.Phone,
		acct.ProfilePicture,
		acct.IsVerified,
		acct.IsActive,
		code,
		expires,
		acct.LastLogin,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("constraint", pgErr.ConstraintName).
				Wrap(account.ErrDuplicateEmail)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("account_id", acct.ID).
			Wrap(err)
	}
	acct.Version = 1
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").With("account_id", id).Wrap(err)
	}
	return acct, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").Wrap(err)
	}
	return acct, nil
}

// Update is a single conditional UPDATE on (id, version). When no row
// matches, a follow-up lookup tells a missing account from a stale version.
func (s *Store) Update(ctx context.Context, acct *account.Account) error {
	code, expires := otpColumns(acct)
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			name = $3, email = $4, password_hash = $5, role = $6, phone = $7,
			profile_picture = $8, is_verified = $9, is_active = $10,
			otp_code = $11, otp_expires_at = $12, last_login = $13,
			updated_at = $14, version = version + 1
		WHERE id = $1 AND version = $2
	`,
		acct.ID,
		acct.Version,
		acct.Name,
		acct.Email,
		acct.PasswordHash,
		string(acct.Role),
		acct.Phone,
		acct.ProfilePicture,
		acct.IsVerified,
		acct.IsActive,
		code,
		expires,
		acct.LastLogin,
		acct.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == emailConstraint {
			return account.ErrDuplicateEmail
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("account_id", acct.ID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, acct.ID).Scan(&exists)
		if err != nil {
			return oops.Code("ACCOUNT_UPDATE_FAILED").With("account_id", acct.ID).Wrap(err)
		}
		if !exists {
			return account.ErrNotFound
		}
		return account.ErrVersionConflict
	}
	acct.Version++
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").With("account_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}

func otpColumns(acct *account.Account) (*string, *time.Time) {
	if acct.OTP == nil {
		return nil, nil
	}
	code := acct.OTP.Code
	exp := acct.OTP.ExpiresAt
	return &code, &exp
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		a         account.Account
		role      string
		otpCode   *string
		otpExpiry *time.Time
	)
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&role,
		&a.Phone,
		&a.ProfilePicture,
		&a.IsVerified,
		&a.IsActive,
		&otpCode,
		&otpExpiry,
		&a.LastLogin,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.Version,
	)
	if err != nil {
		return nil, err
	}
	a.Role = account.Role(role)
	if otpCode != nil && otpExpiry != nil {
		a.OTP = &account.Challenge{Code: *otpCode, ExpiresAt: *otpExpiry}
	}
	return &a, nil
}
