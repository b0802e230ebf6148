package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/messline/messauth/account"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "name", "email", "password_hash", "role", "phone", "profile_picture",
	"is_verified", "is_active", "otp_code", "otp_expires_at", "last_login",
	"created_at", "updated_at", "version",
}

var created = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func sampleAccount() *account.Account {
	a := account.New("a1", "Asha Rao", "asha@example.com", "$2a$04$hash", account.RoleUser, "", created)
	a.IssueOTP("123456", created.Add(10*time.Minute))
	return a
}

func ptr[T any](v T) *T { return &v }

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(mock pgxmock.PgxPoolIface)
		wantErr  error
		wantCode string
	}{
		{
			name: "inserts account",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs("a1", "Asha Rao", "asha@example.com", "$2a$04$hash", "user", "", "",
						false, true, ptr("123456"), ptr(created.Add(10*time.Minute)), (*time.Time)(nil),
						created, created).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: emailConstraint})
			},
			wantErr:  account.ErrDuplicateEmail,
			wantCode: "ACCOUNT_DUPLICATE_EMAIL",
		},
		{
			name: "connection failure",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "ACCOUNT_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)

			acct := sampleAccount()
			err := New(mock).Create(context.Background(), acct)

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, int64(1), acct.Version)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, oopsErr.Code())
		})
	}
}

func TestGetByEmail(t *testing.T) {
	t.Run("scans account", func(t *testing.T) {
		mock := newMock(t)
		lastLogin := created.Add(time.Hour)
		rows := pgxmock.NewRows(columns).AddRow(
			"a1", "Asha Rao", "asha@example.com", "$2a$04$hash", "mess-owner", "+91 98765", "",
			true, true, (*string)(nil), (*time.Time)(nil), &lastLogin,
			created, created, int64(3),
		)
		mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
			WithArgs("asha@example.com").
			WillReturnRows(rows)

		got, err := New(mock).GetByEmail(context.Background(), "asha@example.com")
		require.NoError(t, err)
		assert.Equal(t, "a1", got.ID)
		assert.Equal(t, account.RoleOwner, got.Role)
		assert.True(t, got.IsVerified)
		assert.Nil(t, got.OTP)
		require.NotNil(t, got.LastLogin)
		assert.True(t, got.LastLogin.Equal(lastLogin))
		assert.Equal(t, int64(3), got.Version)
	})

	t.Run("scans pending challenge", func(t *testing.T) {
		mock := newMock(t)
		exp := created.Add(10 * time.Minute)
		rows := pgxmock.NewRows(columns).AddRow(
			"a1", "Asha Rao", "asha@example.com", "$2a$04$hash", "user", "", "",
			false, true, ptr("654321"), &exp, (*time.Time)(nil),
			created, created, int64(1),
		)
		mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
			WithArgs("asha@example.com").
			WillReturnRows(rows)

		got, err := New(mock).GetByEmail(context.Background(), "asha@example.com")
		require.NoError(t, err)
		require.NotNil(t, got.OTP)
		assert.Equal(t, "654321", got.OTP.Code)
		assert.True(t, got.OTP.ExpiresAt.Equal(exp))
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM accounts WHERE email = \$1`).
			WithArgs("ghost@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := New(mock).GetByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})
}

func TestGetByIDFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs("a1").
		WillReturnError(errors.New("connection reset"))

	_, err := New(mock).GetByID(context.Background(), "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, account.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func updateArgs() []any {
	args := make([]any, 14)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestUpdate(t *testing.T) {
	t.Run("bumps version", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE accounts SET`).
			WithArgs(updateArgs()...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		acct := sampleAccount()
		acct.Version = 4
		require.NoError(t, New(mock).Update(context.Background(), acct))
		assert.Equal(t, int64(5), acct.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE accounts SET`).
			WithArgs(updateArgs()...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("a1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		acct := sampleAccount()
		assert.ErrorIs(t, New(mock).Update(context.Background(), acct), account.ErrVersionConflict)
		assert.Equal(t, int64(0), acct.Version)
	})

	t.Run("missing account", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE accounts SET`).
			WithArgs(updateArgs()...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("a1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		assert.ErrorIs(t, New(mock).Update(context.Background(), sampleAccount()), account.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	t.Run("deletes", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM accounts`).
			WithArgs("a1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		require.NoError(t, New(mock).Delete(context.Background(), "a1"))
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM accounts`).
			WithArgs("a1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		assert.ErrorIs(t, New(mock).Delete(context.Background(), "a1"), account.ErrNotFound)
	})
}
