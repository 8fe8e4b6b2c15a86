package accounts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("accounts: not found")
	ErrConflict     = errors.New("accounts: username or email already taken")
	ErrInvalidInput = errors.New("accounts: invalid input")
)

// Account is a registered user. PasswordHash never leaves the server.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// View is the public representation of an account.
type View struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View strips credential material.
func (a Account) View() View {
	return View{ID: a.ID, Username: a.Username, Email: a.Email, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}

// Changes holds the fields to overwrite; nil fields are left untouched.
type Changes struct {
	Username     *string
	Email        *string
	PasswordHash *string
	UpdatedAt    time.Time
}

// Store persists accounts. Create assigns ID. Implementations report
// duplicate usernames or emails as ErrConflict and misses as ErrNotFound.
type Store interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, id int64) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	Update(ctx context.Context, id int64, c Changes) (Account, error)
	Delete(ctx context.Context, id int64) error
}
