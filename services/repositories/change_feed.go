package repositories

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const DefaultChangeChannel = "ecotale:store:changes"

// ChangeFeed announces written paths to every API instance so that store
// subscriptions see writes made elsewhere.
type ChangeFeed interface {
	Publish(ctx context.Context, path string) error
	// Listen returns changed paths until the returned stop func is called.
	Listen(ctx context.Context) (<-chan string, func(), error)
}

type RedisChangeFeed struct {
	client  *redis.Client
	channel string
}

func NewRedisChangeFeed(client *redis.Client, channel string) *RedisChangeFeed {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &RedisChangeFeed{client: client, channel: channel}
}

func (f *RedisChangeFeed) Publish(ctx context.Context, path string) error {
	return f.client.Publish(ctx, f.channel, path).Err()
}

func (f *RedisChangeFeed) Listen(ctx context.Context) (<-chan string, func(), error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan string, 16)
	done := make(chan struct{})
	msgs := pubsub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
					log.WithField("path", msg.Payload).Warn("Dropping store change notification; listener is behind")
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, stop, nil
}
