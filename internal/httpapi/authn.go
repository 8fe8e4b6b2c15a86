package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/session"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
	realm      = "tasklane"
)

// DefaultGate returns the route rules of the API with def applied to
// everything they do not name.
func DefaultGate(def auth.Requirement) *auth.Gate {
	return auth.NewGate(def,
		auth.Rule{Method: http.MethodOptions, Pattern: "/**", Requirement: auth.Public},
		auth.Rule{Method: http.MethodPost, Pattern: "/accounts/register", Requirement: auth.Public},
		auth.Rule{Method: http.MethodPost, Pattern: "/accounts/login", Requirement: auth.Public},
		auth.Rule{Method: http.MethodPost, Pattern: "/accounts/logout", Requirement: auth.Public},
		auth.Rule{Method: http.MethodGet, Pattern: "/healthz", Requirement: auth.Public},
		auth.Rule{Method: http.MethodGet, Pattern: "/readyz", Requirement: auth.Public},
		auth.Rule{Method: http.MethodGet, Pattern: "/v1/info", Requirement: auth.Public},
		auth.Rule{Method: http.MethodGet, Pattern: "/metrics", Requirement: auth.Public},
		auth.Rule{Pattern: "/accounts/**", Requirement: auth.Protected},
		auth.Rule{Pattern: "/todos/**", Requirement: auth.Protected},
	)
}

type refusalKey struct{}

// authenticate resolves the presented credential once per request and
// binds the identity to the context. Refused credentials and backend
// errors leave the request anonymous; the gate decides whether that matters.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := auth.Presented{
			BearerToken: bearerToken(r.Header.Get(authHeader)),
			SessionID:   session.ReadCookie(r, a.cookie),
		}
		identity, source, err := a.resolver.Resolve(r.Context(), presented)
		obs.ObserveResolution(string(source), auth.Outcome(err))

		ctx := r.Context()
		switch {
		case err == nil:
			ctx = auth.ContextWithIdentity(ctx, identity, source)
			if entry := accessLogFrom(ctx); entry != nil {
				entry.authenticated = true
				entry.accountID = identity.AccountID
			}
		case errors.Is(err, auth.ErrNotAuthenticated):
		case errors.Is(err, auth.ErrTokenExpired),
			errors.Is(err, auth.ErrTokenInvalidSignature),
			errors.Is(err, auth.ErrSessionNotFound):
			ctx = context.WithValue(ctx, refusalKey{}, err)
		default:
			a.logger.WarnContext(ctx, "identity resolution failed, continuing unauthenticated",
				"source", string(source), "error", err)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// enforceGate rejects anonymous requests to protected routes before any
// handler runs.
func (a *API) enforceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.gate.Check(r.Context(), r.Method, r.URL.Path); err != nil {
			a.unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) unauthorized(w http.ResponseWriter, r *http.Request) {
	msg := "authentication required"
	challenge := a.challenge()
	if err, ok := r.Context().Value(refusalKey{}).(error); ok {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			msg = "token expired"
			challenge += `, error="invalid_token"`
		case errors.Is(err, auth.ErrTokenInvalidSignature):
			msg = "invalid token"
			challenge += `, error="invalid_token"`
		case errors.Is(err, auth.ErrSessionNotFound):
			msg = "session expired or unknown"
			session.ClearCookie(w, a.cookie)
		}
	}
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func (a *API) challenge() string {
	if a.auth.Mode() == auth.ModeSession {
		return "Cookie realm=\"" + realm + "\""
	}
	return "Bearer realm=\"" + realm + "\""
}

// identity returns the bound identity or writes 401.
func (a *API) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		a.unauthorized(w, r)
		return auth.Identity{}, false
	}
	return identity, true
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}
