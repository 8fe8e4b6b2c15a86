package accounts

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	seq   int64
	byID  map[int64]*Account
	names map[string]int64
	mails map[string]int64
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:  make(map[int64]*Account),
		names: make(map[string]int64),
		mails: make(map[string]int64),
	}
}

func emailKey(email string) string { return strings.ToLower(email) }

func (s *InMemory) Create(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.names[a.Username]; taken {
		return ErrConflict
	}
	if _, taken := s.mails[emailKey(a.Email)]; taken {
		return ErrConflict
	}
	s.seq++
	a.ID = s.seq
	stored := *a
	s.byID[a.ID] = &stored
	s.names[a.Username] = a.ID
	s.mails[emailKey(a.Email)] = a.ID
	return nil
}

func (s *InMemory) Get(_ context.Context, id int64) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *a, nil
}

func (s *InMemory) GetByUsername(_ context.Context, username string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[username]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *s.byID[id], nil
}

func (s *InMemory) List(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, id int64, c Changes) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if c.Username != nil && *c.Username != a.Username {
		if _, taken := s.names[*c.Username]; taken {
			return Account{}, ErrConflict
		}
	}
	if c.Email != nil && emailKey(*c.Email) != emailKey(a.Email) {
		if _, taken := s.mails[emailKey(*c.Email)]; taken {
			return Account{}, ErrConflict
		}
	}
	if c.Username != nil {
		delete(s.names, a.Username)
		a.Username = *c.Username
		s.names[a.Username] = id
	}
	if c.Email != nil {
		delete(s.mails, emailKey(a.Email))
		a.Email = *c.Email
		s.mails[emailKey(a.Email)] = id
	}
	if c.PasswordHash != nil {
		a.PasswordHash = *c.PasswordHash
	}
	a.UpdatedAt = c.UpdatedAt
	return *a, nil
}

func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.names, a.Username)
	delete(s.mails, emailKey(a.Email))
	delete(s.byID, id)
	return nil
}
