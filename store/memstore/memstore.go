// Package memstore is an in-process account.Store for tests and single-node
// development.
package memstore

import (
	"context"
	"sync"

	"github.com/messline/messauth/account"
)

// Store keeps accounts in memory. Records are cloned on the way in and out so
// callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*account.Account
	byEmail map[string]string
}

var _ account.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		byID:    make(map[string]*account.Account),
		byEmail: make(map[string]string),
	}
}

func (s *Store) Create(ctx context.Context, acct *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[acct.Email]; ok {
		return account.ErrDuplicateEmail
	}
	if _, ok := s.byID[acct.ID]; ok {
		return account.ErrDuplicateEmail
	}
	acct.Version = 1
	s.byID[acct.ID] = acct.Clone()
	s.byEmail[acct.Email] = acct.ID
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return acct.Clone(), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, account.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) Update(ctx context.Context, acct *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[acct.ID]
	if !ok {
		return account.ErrNotFound
	}
	if cur.Version != acct.Version {
		return account.ErrVersionConflict
	}
	if cur.Email != acct.Email {
		if _, taken := s.byEmail[acct.Email]; taken {
			return account.ErrDuplicateEmail
		}
		delete(s.byEmail, cur.Email)
		s.byEmail[acct.Email] = acct.ID
	}
	acct.Version++
	s.byID[acct.ID] = acct.Clone()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[id]
	if !ok {
		return account.ErrNotFound
	}
	delete(s.byEmail, acct.Email)
	delete(s.byID, id)
	return nil
}

// Len reports the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
