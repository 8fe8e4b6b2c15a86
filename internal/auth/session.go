package auth

import "context"

// SessionStore keeps server-side sessions keyed by an opaque id.
// Lookup returns ErrSessionNotFound for unknown, expired or invalidated ids.
// Invalidate is idempotent.
type SessionStore interface {
	Create(ctx context.Context, identity Identity) (string, error)
	Lookup(ctx context.Context, sessionID string) (Identity, error)
	Invalidate(ctx context.Context, sessionID string) error
}
