package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dyluth/fleetbuild/pkg/fleet"
	"github.com/redis/go-redis/v9"
)

// DefaultHistory is how many release events are kept in the releases list.
const DefaultHistory = 50

// RedisNotifier publishes release events on the project's artifacts_ready
// channel and keeps a capped history list for consumers that were not
// subscribed at the time.
type RedisNotifier struct {
	rdb     *redis.Client
	project string
	history int64
}

// NewRedisNotifier creates a notifier for project using redisOpts.
func NewRedisNotifier(redisOpts *redis.Options, project string) (*RedisNotifier, error) {
	if project == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}
	return &RedisNotifier{
		rdb:     redis.NewClient(redisOpts),
		project: project,
		history: DefaultHistory,
	}, nil
}

// NewRedisNotifierFromURL parses a redis:// URL and creates a notifier.
func NewRedisNotifierFromURL(url, project string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisNotifier(opts, project)
}

// Close closes the Redis connection. Implements io.Closer.
func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}

// Ping verifies Redis connectivity.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.rdb.Ping(ctx).Err()
}

// ArtifactsReady records ev in the history list and publishes it.
func (n *RedisNotifier) ArtifactsReady(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal release event: %w", err)
	}

	key := fleet.ReleasesKey(n.project)
	_, err = n.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, n.history-1)
		pipe.Publish(ctx, fleet.ArtifactsReadyChannel(n.project), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish release event: %w", err)
	}
	return nil
}

// Latest returns the most recent release event, or (nil, nil) if none exists.
func (n *RedisNotifier) Latest(ctx context.Context) (*Event, error) {
	data, err := n.rdb.LIndex(ctx, fleet.ReleasesKey(n.project), 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read release history: %w", err)
	}

	var ev Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal release event: %w", err)
	}
	return &ev, nil
}

// Subscription delivers release events until closed.
type Subscription struct {
	events chan *Event
	errors chan error
	cancel context.CancelFunc
	once   sync.Once
}

// Events returns the channel of release events.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Implements io.Closer.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe listens for release events on the project's channel. The
// subscription is confirmed with Redis before Subscribe returns, so events
// published afterwards are not missed. Caller must Close the subscription.
func (n *RedisNotifier) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := n.rdb.Subscribe(ctx, fleet.ArtifactsReadyChannel(n.project))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to release events: %w", err)
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal release event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
