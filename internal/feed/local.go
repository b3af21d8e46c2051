package feed

import (
	"context"
	"log"
	"sync"

	"github.com/minhvt/invoice-dash-back/internal/domain"
)

// LocalFeed is an in-process feed used when Redis is not configured, and by
// tests. Delivery is in-order per subscription. There is no backpressure: a
// subscriber that falls more than bufferSize events behind is treated as
// disconnected and dropped.
type LocalFeed struct {
	bufferSize int
	logger     *log.Logger

	mu     sync.Mutex
	nextID int64
	subs   map[int64]*localSubscriber
}

type localSubscriber struct {
	topic  Topic
	events chan domain.ChangeEvent
	handle *Subscription
}

func NewLocalFeed(bufferSize int, logger *log.Logger) *LocalFeed {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &LocalFeed{
		bufferSize: bufferSize,
		logger:     logger,
		subs:       make(map[int64]*localSubscriber),
	}
}

func (f *LocalFeed) Publish(_ context.Context, event domain.ChangeEvent) error {
	var dropped []*localSubscriber

	f.mu.Lock()
	for id, sub := range f.subs {
		if !sub.topic.Matches(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			// Buffer full: the consumer cannot keep up. Drop the whole
			// subscription rather than blocking every other publisher.
			delete(f.subs, id)
			close(sub.events)
			dropped = append(dropped, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range dropped {
		sub.handle.fail(ErrStreamDisconnected)
		if f.logger != nil {
			f.logger.Printf("local feed dropped slow subscriber collection=%s", sub.topic.Collection)
		}
	}
	return nil
}

func (f *LocalFeed) Subscribe(_ context.Context, topic Topic, handler Handler) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	sub := &localSubscriber{
		topic:  topic,
		events: make(chan domain.ChangeEvent, f.bufferSize),
	}
	sub.handle = newSubscription(func() {
		f.remove(id)
	})
	f.subs[id] = sub

	go func() {
		for event := range sub.events {
			handler(event)
		}
	}()

	return sub.handle, nil
}

func (f *LocalFeed) remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(sub.events)
	}
}

// Disconnect force-drops every open subscription, reporting the loss to each
// handle. Used by tests to simulate losing the backing connection.
func (f *LocalFeed) Disconnect() {
	f.mu.Lock()
	dropped := make([]*localSubscriber, 0, len(f.subs))
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.events)
		dropped = append(dropped, sub)
	}
	f.mu.Unlock()

	for _, sub := range dropped {
		sub.handle.fail(ErrStreamDisconnected)
	}
}
