package auth

import (
	"context"
	"errors"
	"log/slog"
)

// Presented holds the credentials a request carried.
type Presented struct {
	BearerToken string
	SessionID   string
}

// Resolver turns presented credentials into an identity. Either mechanism
// may be nil; a bearer token is consulted before a session id.
type Resolver struct {
	tokens   *TokenCodec
	sessions SessionStore
	logger   *slog.Logger
}

// NewResolver builds a Resolver. logger may be nil.
func NewResolver(tokens *TokenCodec, sessions SessionStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{tokens: tokens, sessions: sessions, logger: logger}
}

// Resolve returns the identity and its source. A nil error means an
// identity was resolved. ErrNotAuthenticated means nothing usable was
// presented; other auth sentinels explain why a presented credential was
// refused. Any remaining error is a backend failure.
func (r *Resolver) Resolve(ctx context.Context, p Presented) (Identity, Source, error) {
	if r.tokens != nil && p.BearerToken != "" {
		identity, err := r.tokens.Decode(p.BearerToken)
		if err != nil {
			r.logger.DebugContext(ctx, "bearer token refused", "reason", Outcome(err))
			return Identity{}, SourceToken, err
		}
		return identity, SourceToken, nil
	}
	if r.sessions != nil && p.SessionID != "" {
		identity, err := r.sessions.Lookup(ctx, p.SessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				r.logger.DebugContext(ctx, "session refused", "reason", Outcome(err))
			} else {
				r.logger.ErrorContext(ctx, "session lookup failed", "error", err)
			}
			return Identity{}, SourceSession, err
		}
		return identity, SourceSession, nil
	}
	return Identity{}, SourceNone, ErrNotAuthenticated
}

// Outcome labels a Resolve result for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotAuthenticated):
		return "anonymous"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalidSignature):
		return "invalid"
	case errors.Is(err, ErrSessionNotFound):
		return "unknown_session"
	default:
		return "error"
	}
}
