package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"tasklane.org/internal/auth"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 5
	maxEmailLen    = 254
)

// Registration is the input to Register.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Patch is the input to Update; omitted fields are unchanged.
type Patch struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Service implements account registration and profile management on a
// Store. It also serves as the credential source for login.
type Service struct {
	store Store
	now   func() time.Time
}

var _ auth.CredentialSource = (*Service)(nil)

// NewService wraps store.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Register validates input, hashes the password and stores the account.
func (s *Service) Register(ctx context.Context, in Registration) (Account, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if err := validateUsername(username); err != nil {
		return Account{}, err
	}
	if err := validateEmail(email); err != nil {
		return Account{}, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}
	now := s.now()
	a := &Account{Username: username, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Create(ctx, a); err != nil {
		return Account{}, err
	}
	return *a, nil
}

// Get returns the account by id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.store.Get(ctx, id)
}

// List returns all accounts ordered by id.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// Update applies a patch to the account.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (Account, error) {
	c := Changes{UpdatedAt: s.now()}
	if p.Username != nil {
		v := strings.TrimSpace(*p.Username)
		if err := validateUsername(v); err != nil {
			return Account{}, err
		}
		c.Username = &v
	}
	if p.Email != nil {
		v := strings.TrimSpace(*p.Email)
		if err := validateEmail(v); err != nil {
			return Account{}, err
		}
		c.Email = &v
	}
	if p.Password != nil {
		hash, err := hashPassword(*p.Password)
		if err != nil {
			return Account{}, err
		}
		c.PasswordHash = &hash
	}
	return s.store.Update(ctx, id, c)
}

// Delete removes the account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// FindAccountByID returns the account with found == false on a miss.
func (s *Service) FindAccountByID(ctx context.Context, id int64) (Account, bool, error) {
	a, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	return a, true, nil
}

// FindCredentialByUsername matches the username exactly.
func (s *Service) FindCredentialByUsername(ctx context.Context, username string) (auth.Credential, bool, error) {
	a, err := s.store.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return auth.Credential{}, false, nil
	}
	if err != nil {
		return auth.Credential{}, false, err
	}
	return auth.Credential{AccountID: a.ID, Username: a.Username, PasswordHash: a.PasswordHash}, true, nil
}

func validateUsername(v string) error {
	n := utf8.RuneCountInString(v)
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: username must not contain whitespace", ErrInvalidInput)
	}
	return nil
}

func validateEmail(v string) error {
	at := strings.IndexByte(v, '@')
	if at <= 0 || at == len(v)-1 || len(v) > maxEmailLen || strings.ContainsAny(v, " \t\r\n") {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrInvalidInput) {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, auth.MaxPasswordBytes)
	}
	return hash, err
}
