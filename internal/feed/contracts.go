package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/minhvt/invoice-dash-back/internal/domain"
)

// ErrStreamDisconnected reports that the underlying feed connection was lost.
// The feed does not reconnect or replay; consumers recover by re-running their
// bulk fetch and subscribing again.
var ErrStreamDisconnected = errors.New("change feed disconnected")

// Topic selects the events a subscription receives: one collection, with an
// optional single-column equality filter (e.g. file_id = 7).
type Topic struct {
	Collection  domain.Collection
	FilterField string
	FilterValue any
}

// Matches reports whether an event belongs to this topic.
func (t Topic) Matches(event domain.ChangeEvent) bool {
	if event.Collection != t.Collection {
		return false
	}
	if t.FilterField == "" {
		return true
	}
	return event.FieldEquals(t.FilterField, t.FilterValue)
}

// Handler receives events for one subscription. Calls are serialized; a slow
// handler backs up that subscription only.
type Handler func(domain.ChangeEvent)

// Publisher emits row-change notifications after successful writes.
type Publisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Subscriber opens long-lived event feeds.
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic, handler Handler) (*Subscription, error)
}

// Subscription is the handle for one open feed. Stop is idempotent. Done is
// closed when the subscription ends for any reason; Err reports
// ErrStreamDisconnected when the feed was lost rather than stopped.
type Subscription struct {
	stop func()

	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	err error
}

func newSubscription(stop func()) *Subscription {
	return &Subscription{stop: stop, done: make(chan struct{})}
}

func (s *Subscription) Stop() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		close(s.done)
	})
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// fail records the loss of the feed and releases the handle.
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		close(s.done)
	})
}
