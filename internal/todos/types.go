package todos

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("todos: not found")
	ErrInvalidInput = errors.New("todos: invalid input")
	// ErrUnknownOwner means the owning account no longer exists.
	ErrUnknownOwner = errors.New("todos: owner account does not exist")
)

// Todo is a task owned by exactly one account.
type Todo struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"accountId"`
	Title     string    `json:"title"`
	Note      string    `json:"note"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft is the input to Create.
type Draft struct {
	Title     string `json:"title"`
	Note      string `json:"note"`
	Completed bool   `json:"completed"`
}

// Patch is the input to Update; nil fields are unchanged.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	Note      *string `json:"note,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Store persists todos. Create assigns ID.
type Store interface {
	Create(ctx context.Context, t *Todo) error
	Get(ctx context.Context, id int64) (Todo, error)
	ListByAccount(ctx context.Context, accountID int64) ([]Todo, error)
	Update(ctx context.Context, id int64, p Patch, updatedAt time.Time) (Todo, error)
	Delete(ctx context.Context, id int64) error
	DeleteByAccount(ctx context.Context, accountID int64) (int64, error)
}

// EventType names a todo change.
type EventType string

const (
	EventCreated EventType = "todo.created"
	EventUpdated EventType = "todo.updated"
	EventDeleted EventType = "todo.deleted"
)

// Event describes a change to one of an account's todos.
type Event struct {
	Type      EventType `json:"type"`
	AccountID int64     `json:"accountId"`
	Todo      Todo      `json:"todo"`
}

// Publisher receives todo events after they are persisted.
type Publisher interface {
	Publish(Event)
}
