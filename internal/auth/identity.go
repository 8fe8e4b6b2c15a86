package auth

import (
	"context"
	"strings"
)

// Identity is the authenticated principal bound to a request.
type Identity struct {
	AccountID int64  `json:"accountId"`
	Username  string `json:"username"`
}

// Valid reports whether both identity fields are populated.
func (i Identity) Valid() bool {
	return i.AccountID > 0 && strings.TrimSpace(i.Username) != ""
}

// Source names the mechanism that produced an identity.
type Source string

const (
	SourceNone    Source = ""
	SourceToken   Source = "token"
	SourceSession Source = "session"
)

type identityContextKey struct{}

type boundIdentity struct {
	identity Identity
	source   Source
}

// ContextWithIdentity binds identity to the request context.
func ContextWithIdentity(ctx context.Context, identity Identity, source Source) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &boundIdentity{identity: identity, source: source})
}

// ContextWithoutIdentity returns a context in which no identity is bound,
// shadowing any identity set by an outer layer.
func ContextWithoutIdentity(ctx context.Context) context.Context {
	return context.WithValue(ctx, identityContextKey{}, (*boundIdentity)(nil))
}

// IdentityFromContext returns the identity bound to the request, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	b := bound(ctx)
	if b == nil {
		return Identity{}, false
	}
	return b.identity, true
}

// SourceFromContext returns how the bound identity was resolved.
func SourceFromContext(ctx context.Context) Source {
	b := bound(ctx)
	if b == nil {
		return SourceNone
	}
	return b.source
}

func bound(ctx context.Context) *boundIdentity {
	if ctx == nil {
		return nil
	}
	b, _ := ctx.Value(identityContextKey{}).(*boundIdentity)
	return b
}
