package todos

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLen = 200
	maxNoteLen  = 4000
)

// Service scopes every operation to the owning account. A todo owned by
// someone else is reported as ErrNotFound so its existence is not leaked.
type Service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher forwards change events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService wraps store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, accountID int64, d Draft) (Todo, error) {
	title := strings.TrimSpace(d.Title)
	if err := validateTitle(title); err != nil {
		return Todo{}, err
	}
	if err := validateNote(d.Note); err != nil {
		return Todo{}, err
	}
	now := s.now()
	t := &Todo{AccountID: accountID, Title: title, Note: d.Note, Completed: d.Completed, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Create(ctx, t); err != nil {
		return Todo{}, err
	}
	s.publish(EventCreated, *t)
	return *t, nil
}

func (s *Service) List(ctx context.Context, accountID int64) ([]Todo, error) {
	return s.store.ListByAccount(ctx, accountID)
}

func (s *Service) Get(ctx context.Context, accountID, id int64) (Todo, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	if t.AccountID != accountID {
		return Todo{}, ErrNotFound
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, accountID, id int64, p Patch) (Todo, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if err := validateTitle(title); err != nil {
			return Todo{}, err
		}
		p.Title = &title
	}
	if p.Note != nil {
		if err := validateNote(*p.Note); err != nil {
			return Todo{}, err
		}
	}
	if _, err := s.Get(ctx, accountID, id); err != nil {
		return Todo{}, err
	}
	t, err := s.store.Update(ctx, id, p, s.now())
	if err != nil {
		return Todo{}, err
	}
	s.publish(EventUpdated, t)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, accountID, id int64) error {
	t, err := s.Get(ctx, accountID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(EventDeleted, t)
	return nil
}

// DeleteAll removes every todo of the account and returns how many went.
func (s *Service) DeleteAll(ctx context.Context, accountID int64) (int64, error) {
	return s.store.DeleteByAccount(ctx, accountID)
}

func (s *Service) publish(kind EventType, t Todo) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(Event{Type: kind, AccountID: t.AccountID, Todo: t})
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxTitleLen)
	}
	return nil
}

func validateNote(note string) error {
	if utf8.RuneCountInString(note) > maxNoteLen {
		return fmt.Errorf("%w: note exceeds %d characters", ErrInvalidInput, maxNoteLen)
	}
	return nil
}
