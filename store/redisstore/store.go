// Package redisstore keeps accounts in Redis: one JSON value per account and
// a unique email index. Writes run under WATCH/MULTI so the email index and
// the record never disagree.
package redisstore

import (
	"context"
	"errors"

	"github.com/messline/messauth/account"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const maxTxRetries = 4

// Store implements account.Store on a Redis client.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

var _ account.Store = (*Store)(nil)

func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "acct"
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) idKey(id string) string {
	return s.prefix + ":id:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + email
}

func (s *Store) Create(ctx context.Context, acct *account.Account) error {
	idKey, emailKey := s.idKey(acct.ID), s.emailKey(acct.Email)

	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, idKey, emailKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return account.ErrDuplicateEmail
			}

			stored := acct.Clone()
			stored.Version = 1
			data, err := encodeAccount(stored)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, idKey, data, 0)
				pipe.Set(ctx, emailKey, acct.ID, 0)
				return nil
			})
			return err
		}, idKey, emailKey)

		switch {
		case err == nil:
			acct.Version = 1
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, account.ErrDuplicateEmail):
			return err
		default:
			return oops.Code("ACCOUNT_CREATE_FAILED").With("account_id", acct.ID).Wrap(err)
		}
	}
	return oops.Code("ACCOUNT_CREATE_FAILED").With("account_id", acct.ID).Errorf("create contended after %d attempts", maxTxRetries)
}

func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	data, err := s.redis.Get(ctx, s.idKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").With("account_id", id).Wrap(err)
	}
	acct, err := decodeAccount(data)
	if err != nil {
		return nil, oops.Code("ACCOUNT_DECODE_FAILED").With("account_id", id).Wrap(err)
	}
	return acct, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").Wrap(err)
	}
	return s.GetByID(ctx, id)
}

// Update writes acct if the stored version still equals acct.Version. A
// concurrent WATCH abort is reported as a version conflict; the caller
// re-reads and decides.
func (s *Store) Update(ctx context.Context, acct *account.Account) error {
	idKey := s.idKey(acct.ID)
	newEmailKey := s.emailKey(acct.Email)

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, idKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return account.ErrNotFound
			}
			return err
		}
		cur, err := decodeAccount(data)
		if err != nil {
			return err
		}
		if cur.Version != acct.Version {
			return account.ErrVersionConflict
		}

		emailChanged := cur.Email != acct.Email
		if emailChanged {
			taken, err := tx.Exists(ctx, newEmailKey).Result()
			if err != nil {
				return err
			}
			if taken > 0 {
				return account.ErrDuplicateEmail
			}
		}

		next := acct.Clone()
		next.Version = cur.Version + 1
		encoded, err := encodeAccount(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, idKey, encoded, 0)
			if emailChanged {
				pipe.Del(ctx, s.emailKey(cur.Email))
				pipe.Set(ctx, newEmailKey, acct.ID, 0)
			}
			return nil
		})
		return err
	}, idKey, newEmailKey)

	switch {
	case err == nil:
		acct.Version++
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return account.ErrVersionConflict
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, account.ErrVersionConflict),
		errors.Is(err, account.ErrDuplicateEmail):
		return err
	default:
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("account_id", acct.ID).Wrap(err)
	}
}

func (s *Store) Delete(ctx context.Context, id string) error {
	idKey := s.idKey(id)

	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, idKey).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return account.ErrNotFound
				}
				return err
			}
			cur, err := decodeAccount(data)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, idKey, s.emailKey(cur.Email))
				return nil
			})
			return err
		}, idKey)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, account.ErrNotFound):
			return err
		default:
			return oops.Code("ACCOUNT_DELETE_FAILED").With("account_id", id).Wrap(err)
		}
	}
	return oops.Code("ACCOUNT_DELETE_FAILED").With("account_id", id).Errorf("delete contended after %d attempts", maxTxRetries)
}
