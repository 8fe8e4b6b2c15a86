package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"tasklane.org/internal/auth"
)

// Options bound session lifetime. IdleTimeout is the sliding window
// refreshed on every successful lookup; MaxLifetime caps a session
// regardless of activity. Zero disables the corresponding limit.
type Options struct {
	IdleTimeout time.Duration
	MaxLifetime time.Duration
	Now         func() time.Time
	// OnCount, when set, receives the store size after every change.
	OnCount func(active int)
}

func (o Options) clock() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

type record struct {
	identity  auth.Identity
	createdAt time.Time
	lastSeen  time.Time
}

// Memory is a process-local session store.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*record
	idle     time.Duration
	max      time.Duration
	now      func() time.Time
	onCount  func(int)
}

var _ auth.SessionStore = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory(opts Options) *Memory {
	return &Memory{
		sessions: make(map[string]*record),
		idle:     opts.IdleTimeout,
		max:      opts.MaxLifetime,
		now:      opts.clock(),
		onCount:  opts.OnCount,
	}
}

func (m *Memory) Create(_ context.Context, identity auth.Identity) (string, error) {
	if !identity.Valid() {
		return "", errors.New("session: identity is incomplete")
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		if _, taken := m.sessions[id]; taken {
			continue
		}
		m.sessions[id] = &record{identity: identity, createdAt: now, lastSeen: now}
		m.report()
		return id, nil
	}
}

func (m *Memory) Lookup(_ context.Context, sessionID string) (auth.Identity, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return auth.Identity{}, auth.ErrSessionNotFound
	}
	if m.expired(rec, now) {
		delete(m.sessions, sessionID)
		m.report()
		return auth.Identity{}, auth.ErrSessionNotFound
	}
	rec.lastSeen = now
	return rec.identity, nil
}

func (m *Memory) Invalidate(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	m.report()
	return nil
}

// InvalidateAccount drops every session bound to accountID.
func (m *Memory) InvalidateAccount(_ context.Context, accountID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.sessions {
		if rec.identity.AccountID == accountID {
			delete(m.sessions, id)
		}
	}
	m.report()
	return nil
}

// RenameAccount updates the username carried by every session of accountID.
func (m *Memory) RenameAccount(_ context.Context, accountID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.sessions {
		if rec.identity.AccountID == accountID {
			rec.identity.Username = username
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included until
// the next Sweep.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, rec := range m.sessions {
		if m.expired(rec, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	m.report()
	return removed
}

// StartJanitor sweeps on interval until ctx is done.
func (m *Memory) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// report must be called with mu held.
func (m *Memory) report() {
	if m.onCount != nil {
		m.onCount(len(m.sessions))
	}
}

func (m *Memory) expired(rec *record, now time.Time) bool {
	if m.max > 0 && !now.Before(rec.createdAt.Add(m.max)) {
		return true
	}
	if m.idle > 0 && !now.Before(rec.lastSeen.Add(m.idle)) {
		return true
	}
	return false
}
