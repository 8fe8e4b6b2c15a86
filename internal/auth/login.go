package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Mode selects the single credential mechanism a deployment uses.
type Mode string

const (
	ModeToken   Mode = "token"
	ModeSession Mode = "session"
)

// ParseMode accepts "token" or "session".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeToken:
		return ModeToken, nil
	case ModeSession:
		return ModeSession, nil
	}
	return "", fmt.Errorf("%w: unknown auth mode %q", ErrInvalidInput, s)
}

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	Mode     Mode
	Verifier *Verifier
	Tokens   *TokenCodec
	TokenTTL time.Duration
	Sessions SessionStore
	Logger   *slog.Logger
}

// Orchestrator performs login and logout for the configured mode.
type Orchestrator struct {
	mode     Mode
	verifier *Verifier
	tokens   *TokenCodec
	tokenTTL time.Duration
	sessions SessionStore
	logger   *slog.Logger
}

// LoginResult carries what a successful login produced. Token and
// ExpiresAt are set in token mode, SessionID in session mode.
type LoginResult struct {
	Identity  Identity
	Token     string
	ExpiresAt time.Time
	SessionID string
}

// NewOrchestrator validates cfg for its mode.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("verifier is required")
	}
	switch cfg.Mode {
	case ModeToken:
		if cfg.Tokens == nil {
			return nil, errors.New("token mode requires a token codec")
		}
		if cfg.TokenTTL <= 0 {
			return nil, errors.New("token mode requires a positive token ttl")
		}
	case ModeSession:
		if cfg.Sessions == nil {
			return nil, errors.New("session mode requires a session store")
		}
	default:
		return nil, fmt.Errorf("%w: unknown auth mode %q", ErrInvalidInput, cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		mode:     cfg.Mode,
		verifier: cfg.Verifier,
		tokens:   cfg.Tokens,
		tokenTTL: cfg.TokenTTL,
		sessions: cfg.Sessions,
		logger:   logger,
	}, nil
}

// Mode reports the configured mechanism.
func (o *Orchestrator) Mode() Mode { return o.mode }

// Resolver returns a resolver that honours only the configured mechanism.
func (o *Orchestrator) Resolver() *Resolver {
	if o.mode == ModeToken {
		return NewResolver(o.tokens, nil, o.logger)
	}
	return NewResolver(nil, o.sessions, o.logger)
}

// Login verifies credentials and issues a token or a session. In session
// mode a previously presented session is invalidated before the new one is
// created.
func (o *Orchestrator) Login(ctx context.Context, username, password, presentedSessionID string) (LoginResult, error) {
	identity, err := o.verifier.Verify(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	result := LoginResult{Identity: identity}
	switch o.mode {
	case ModeToken:
		token, expiresAt, err := o.tokens.Encode(identity, o.tokenTTL)
		if err != nil {
			return LoginResult{}, err
		}
		result.Token = token
		result.ExpiresAt = expiresAt
	case ModeSession:
		if presentedSessionID != "" {
			if err := o.sessions.Invalidate(ctx, presentedSessionID); err != nil {
				return LoginResult{}, fmt.Errorf("invalidate previous session: %w", err)
			}
		}
		id, err := o.sessions.Create(ctx, identity)
		if err != nil {
			return LoginResult{}, fmt.Errorf("create session: %w", err)
		}
		result.SessionID = id
	}
	return result, nil
}

// Logout invalidates the presented session. It is a no-op in token mode
// and for requests without a session.
func (o *Orchestrator) Logout(ctx context.Context, presentedSessionID string) error {
	if o.mode != ModeSession || presentedSessionID == "" {
		return nil
	}
	if err := o.sessions.Invalidate(ctx, presentedSessionID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}


// Rebind replaces the presented session with one carrying identity and
// returns the new session id. It returns "" in token mode and for requests
// without a session; issued tokens keep their claims until they expire.
func (o *Orchestrator) Rebind(ctx context.Context, presentedSessionID string, identity Identity) (string, error) {
	if o.mode != ModeSession || presentedSessionID == "" {
		return "", nil
	}
	if err := o.sessions.Invalidate(ctx, presentedSessionID); err != nil {
		return "", fmt.Errorf("invalidate session: %w", err)
	}
	id, err := o.sessions.Create(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}
