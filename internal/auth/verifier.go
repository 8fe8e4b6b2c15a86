package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Credential is the stored login material for one account.
type Credential struct {
	AccountID    int64
	Username     string
	PasswordHash string
}

// CredentialSource looks up credentials by exact username. A missing
// account is reported as found == false with a nil error.
type CredentialSource interface {
	FindCredentialByUsername(ctx context.Context, username string) (cred Credential, found bool, err error)
}

// Verifier checks a username and password pair against a CredentialSource.
type Verifier struct {
	source    CredentialSource
	logger    *slog.Logger
	dummyHash []byte
}

// NewVerifier builds a Verifier. logger may be nil. The hash compared
// against for unknown usernames is computed here at HashCost.
func NewVerifier(source CredentialSource, logger *slog.Logger) (*Verifier, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: credential source is required", ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("tasklane-unknown-user"), HashCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Verifier{source: source, logger: logger, dummyHash: dummy}, nil
}

// Verify returns the identity for valid credentials. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials; only lookup failures
// surface as other errors.
func (v *Verifier) Verify(ctx context.Context, username, password string) (Identity, error) {
	if username == "" || password == "" {
		v.burn(password)
		return Identity{}, ErrInvalidCredentials
	}
	cred, found, err := v.source.FindCredentialByUsername(ctx, username)
	if err != nil {
		return Identity{}, fmt.Errorf("lookup credential: %w", err)
	}
	if !found {
		v.burn(password)
		v.logger.DebugContext(ctx, "login rejected", "reason", "unknown_username")
		return Identity{}, ErrInvalidCredentials
	}
	if !VerifyPassword(cred.PasswordHash, password) {
		v.logger.DebugContext(ctx, "login rejected", "reason", "password_mismatch", "account_id", cred.AccountID)
		return Identity{}, ErrInvalidCredentials
	}
	identity := Identity{AccountID: cred.AccountID, Username: cred.Username}
	if !identity.Valid() {
		v.logger.Error("credential source returned incomplete identity", "account_id", cred.AccountID)
		return Identity{}, ErrInvalidCredentials
	}
	return identity, nil
}

// burn spends one bcrypt comparison so unknown usernames cost the same as
// wrong passwords.
func (v *Verifier) burn(password string) {
	_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
}
