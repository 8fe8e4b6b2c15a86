package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tasklane.org/internal/todos"
)

const subscriberBuffer = 16

type subscriber struct {
	accountID int64
	ch        chan todos.Event
}

// Stream fans todo events out to subscribers of the owning account.
type Stream struct {
	mu   sync.RWMutex
	subs map[string]subscriber
}

var _ todos.Publisher = (*Stream)(nil)

// New returns an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[string]subscriber)}
}

// Subscribe registers a subscriber for accountID. The channel is closed
// when ctx ends.
func (s *Stream) Subscribe(ctx context.Context, accountID int64) <-chan todos.Event {
	ch := make(chan todos.Event, subscriberBuffer)
	id := uuid.NewString()

	s.mu.Lock()
	s.subs[id] = subscriber{accountID: accountID, ch: ch}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// Publish delivers evt to the owner's subscribers. Slow subscribers miss
// events instead of blocking the writer.
func (s *Stream) Publish(evt todos.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.accountID != evt.AccountID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
