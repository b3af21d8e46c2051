package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/minhvt/invoice-dash-back/internal/domain"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisFeed implements Publisher+Subscriber over Redis pub/sub, one channel
// per collection. Pub/sub delivery is in-order per connection and carries no
// acknowledgement, which matches the feed contract exactly: a consumer that
// loses the connection missed whatever happened during the gap.
type RedisFeed struct {
	client *redis.Client
	prefix string
	logger *log.Logger
}

func NewRedisFeed(ctx context.Context, cfg RedisConfig, logger *log.Logger) (*RedisFeed, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "changes"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisFeed{client: client, prefix: cfg.Prefix, logger: logger}, nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func (f *RedisFeed) channelFor(collection domain.Collection) string {
	return f.prefix + ":" + string(collection)
}

func (f *RedisFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channelFor(event.Collection), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic Topic, handler Handler) (*Subscription, error) {
	pubsub := f.client.Subscribe(ctx, f.channelFor(topic.Collection))

	// Force the subscribe round trip so a dead connection fails here, not
	// silently on the first missed event.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic.Collection, err)
	}

	var stopped atomic.Bool
	handle := newSubscription(func() {
		stopped.Store(true)
		_ = pubsub.Close()
	})

	stream := &redisStream{
		source:  pubsub,
		channel: f.channelFor(topic.Collection),
		topic:   topic,
		handler: handler,
		handle:  handle,
		stopped: &stopped,
		logger:  f.logger,
	}
	go stream.consume(ctx)

	return handle, nil
}

// messageSource is the slice of redis.PubSub the consume loop relies on.
type messageSource interface {
	ReceiveMessage(ctx context.Context) (*redis.Message, error)
}

type redisStream struct {
	source  messageSource
	channel string
	topic   Topic
	handler Handler
	handle  *Subscription
	stopped *atomic.Bool
	logger  *log.Logger
}

// consume relays messages until the subscription is stopped or the transport
// errors. ReceiveMessage surfaces transport errors directly, unlike Channel,
// whose internal loop retries and resubscribes over a silent gap. Any error
// while not deliberately stopped means events may have been missed, so the
// subscription fails with ErrStreamDisconnected and the consumer re-fetches.
func (s *redisStream) consume(ctx context.Context) {
	for {
		message, err := s.source.ReceiveMessage(ctx)
		if err != nil {
			// A stopped subscription or a canceled caller context is a
			// deliberate end, not a lost feed.
			if s.stopped.Load() || ctx.Err() != nil {
				return
			}
			if s.logger != nil {
				s.logger.Printf("feed lost channel=%s err=%v", s.channel, err)
			}
			// fail runs the stop closure, which closes the pubsub.
			s.handle.fail(ErrStreamDisconnected)
			return
		}

		var event domain.ChangeEvent
		if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
			if s.logger != nil {
				s.logger.Printf("feed dropped malformed event channel=%s err=%v", message.Channel, err)
			}
			continue
		}
		if s.topic.Matches(event) {
			s.handler(event)
		}
	}
}
