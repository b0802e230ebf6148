package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/messline/messauth/account"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return New(rdb, ""), mr
}

func newAccount(id, email string) *account.Account {
	a := account.New(id, "Asha Rao", email, "$2a$04$hash", account.RoleOwner, "+91 98765", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	a.IssueOTP("123456", time.Date(2026, 1, 2, 3, 14, 5, 0, time.UTC))
	return a
}

func TestCreateAndRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	acct := newAccount("a1", "asha@example.com")
	require.NoError(t, s.Create(ctx, acct))
	assert.Equal(t, int64(1), acct.Version)
	assert.True(t, mr.Exists("acct:id:a1"))
	assert.True(t, mr.Exists("acct:email:asha@example.com"))

	got, err := s.GetByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.Equal(t, account.RoleOwner, got.Role)
	assert.Equal(t, "+91 98765", got.Phone)
	require.NotNil(t, got.OTP)
	assert.Equal(t, "123456", got.OTP.Code)
	assert.True(t, got.OTP.ExpiresAt.Equal(acct.OTP.ExpiresAt))
	assert.True(t, got.CreatedAt.Equal(acct.CreatedAt))
	assert.Equal(t, int64(1), got.Version)
}

func TestCreateDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newAccount("a1", "asha@example.com")))
	err := s.Create(ctx, newAccount("a2", "asha@example.com"))
	assert.ErrorIs(t, err, account.ErrDuplicateEmail)
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, account.ErrNotFound)
	_, err = s.GetByEmail(ctx, "nope@example.com")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestUpdateCompareAndSwap(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newAccount("a1", "asha@example.com")))

	first, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	stale, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)

	first.IsVerified = true
	first.OTP = nil
	require.NoError(t, s.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.Name = "Overwrite"
	assert.ErrorIs(t, s.Update(ctx, stale), account.ErrVersionConflict)

	got, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Nil(t, got.OTP)
	assert.Equal(t, "Asha Rao", got.Name)
}

func TestUpdateEmailMovesIndex(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newAccount("a1", "asha@example.com")))
	require.NoError(t, s.Create(ctx, newAccount("a2", "other@example.com")))

	acct, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	acct.Email = "other@example.com"
	assert.ErrorIs(t, s.Update(ctx, acct), account.ErrDuplicateEmail)

	acct.Email = "new@example.com"
	require.NoError(t, s.Update(ctx, acct))
	assert.False(t, mr.Exists("acct:email:asha@example.com"))

	got, err := s.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
}

func TestDelete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newAccount("a1", "asha@example.com")))

	require.NoError(t, s.Delete(ctx, "a1"))
	assert.False(t, mr.Exists("acct:id:a1"))
	assert.False(t, mr.Exists("acct:email:asha@example.com"))
	assert.ErrorIs(t, s.Delete(ctx, "a1"), account.ErrNotFound)

	require.NoError(t, s.Create(ctx, newAccount("a3", "asha@example.com")))
}

func TestBackendFailureIsCoded(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.GetByID(context.Background(), "a1")
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "ACCOUNT_QUERY_FAILED", oopsErr.Code())
}
