package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tasklane.org/internal/auth"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var alice = auth.Identity{AccountID: 1, Username: "alice"}

func TestMemoryCreateLookupInvalidate(t *testing.T) {
	store := NewMemory(Options{})
	ctx := context.Background()

	id, err := store.Create(ctx, alice)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(id) < 40 {
		t.Fatalf("session id too short: %q", id)
	}
	got, err := store.Lookup(ctx, id)
	if err != nil || got != alice {
		t.Fatalf("Lookup: %+v %v", got, err)
	}
	if err := store.Invalidate(ctx, id); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := store.Invalidate(ctx, id); err != nil {
		t.Fatalf("second Invalidate: %v", err)
	}
	if _, err := store.Lookup(ctx, id); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.Lookup(ctx, "never-issued"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.Create(ctx, auth.Identity{}); err == nil {
		t.Fatal("expected error for empty identity")
	}
}

func TestMemoryIdleTimeoutSlides(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemory(Options{IdleTimeout: 10 * time.Minute, Now: clock.Now})
	ctx := context.Background()

	id, err := store.Create(ctx, alice)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 5; i++ {
		clock.Advance(9 * time.Minute)
		if _, err := store.Lookup(ctx, id); err != nil {
			t.Fatalf("lookup %d should slide the window: %v", i, err)
		}
	}
	clock.Advance(10 * time.Minute)
	if _, err := store.Lookup(ctx, id); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected idle expiry, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expired session should be dropped on lookup, len=%d", store.Len())
	}
}

func TestMemoryMaxLifetime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemory(Options{IdleTimeout: time.Hour, MaxLifetime: 2 * time.Hour, Now: clock.Now})
	ctx := context.Background()

	id, _ := store.Create(ctx, alice)
	clock.Advance(50 * time.Minute)
	if _, err := store.Lookup(ctx, id); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	clock.Advance(50 * time.Minute)
	if _, err := store.Lookup(ctx, id); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	clock.Advance(20 * time.Minute)
	if _, err := store.Lookup(ctx, id); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected absolute expiry, got %v", err)
	}
}

func TestMemorySweepAndAccountInvalidation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemory(Options{IdleTimeout: time.Minute, Now: clock.Now})
	ctx := context.Background()

	bob := auth.Identity{AccountID: 2, Username: "bob"}
	stale, _ := store.Create(ctx, alice)
	clock.Advance(30 * time.Second)
	fresh, _ := store.Create(ctx, bob)
	other, _ := store.Create(ctx, alice)
	clock.Advance(45 * time.Second)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected one expired session, removed %d", removed)
	}
	if _, err := store.Lookup(ctx, stale); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("stale session survived sweep: %v", err)
	}
	if err := store.InvalidateAccount(ctx, alice.AccountID); err != nil {
		t.Fatalf("InvalidateAccount: %v", err)
	}
	if _, err := store.Lookup(ctx, other); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("alice session survived account invalidation: %v", err)
	}
	if got, err := store.Lookup(ctx, fresh); err != nil || got != bob {
		t.Fatalf("bob session lost: %+v %v", got, err)
	}
}

func TestMemoryConcurrentUse(t *testing.T) {
	store := NewMemory(Options{IdleTimeout: time.Hour})
	ctx := context.Background()
	var wg sync.WaitGroup
	ids := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := auth.Identity{AccountID: int64(n + 1), Username: "user"}
			id, err := store.Create(ctx, identity)
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			got, err := store.Lookup(ctx, id)
			if err != nil || got.AccountID != identity.AccountID {
				t.Errorf("cross-bound session: %+v %v", got, err)
			}
			ids <- id
		}(i)
	}
	wg.Wait()
	close(ids)
	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestMemoryReportsCountPerStore(t *testing.T) {
	var first, second []int
	a := NewMemory(Options{OnCount: func(n int) { first = append(first, n) }})
	b := NewMemory(Options{OnCount: func(n int) { second = append(second, n) }})
	ctx := context.Background()

	id, err := a.Create(ctx, alice)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := a.Create(ctx, auth.Identity{AccountID: 2, Username: "bob"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := b.Create(ctx, alice); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := a.Invalidate(ctx, id); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	if got := fmt.Sprint(first); got != "[1 2 1]" {
		t.Fatalf("first store reported %s", got)
	}
	if got := fmt.Sprint(second); got != "[1]" {
		t.Fatalf("second store reported %s", got)
	}
	// No hook configured.
	NewMemory(Options{}).Sweep()
}
