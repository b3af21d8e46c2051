package reconcile

import (
	"context"
	"sync"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/feed"
)

// Session binds a View to a live feed subscription: one bulk fetch, then
// events applied as they arrive. An event committed between the fetch and the
// subscribe can be missed; that window is accepted, recovery is a fresh Open.
type Session[T any] struct {
	view *View[T]
	sub  *feed.Subscription

	mu      sync.Mutex
	changed []chan struct{}
}

// Open fetches the initial list and subscribes to the topic. onEvent may be
// nil; when set it runs after each event is applied, serialized with the feed.
func Open[T any](
	ctx context.Context,
	subscriber feed.Subscriber,
	topic feed.Topic,
	fetch func(context.Context) ([]T, error),
	id func(T) int64,
	policy InsertPolicy,
) (*Session[T], error) {
	view := NewView(id, policy)
	if err := view.Initialize(ctx, fetch); err != nil {
		return nil, err
	}

	session := &Session[T]{view: view}
	sub, err := subscriber.Subscribe(ctx, topic, func(event domain.ChangeEvent) {
		view.Apply(event)
		session.notify()
	})
	if err != nil {
		return nil, err
	}
	session.sub = sub
	return session, nil
}

func (s *Session[T]) List() []T {
	return s.view.List()
}

// Changed returns a channel that receives a tick after each applied event.
// Ticks are dropped, not queued, when the receiver lags.
func (s *Session[T]) Changed() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.changed = append(s.changed, ch)
	s.mu.Unlock()
	return ch
}

func (s *Session[T]) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.changed {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Done closes when the subscription ends; Err distinguishes a lost feed from
// a deliberate Close.
func (s *Session[T]) Done() <-chan struct{} {
	return s.sub.Done()
}

func (s *Session[T]) Err() error {
	return s.sub.Err()
}

// Close tears down the subscription. Safe to call repeatedly.
func (s *Session[T]) Close() {
	s.sub.Stop()
}
