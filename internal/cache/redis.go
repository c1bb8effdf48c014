package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis is a Store and Publisher backed by a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
	logger logrus.FieldLogger
}

// NewRedis creates a client; it does not dial until first use.
func NewRedis(addr, password string, db int, prefix string, logger logrus.FieldLogger) *Redis {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client, prefix: prefix, logger: logger}
}

// HealthCheck verifies Redis connectivity.
func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Publish sends v as JSON on the prefixed channel.
func (r *Redis) Publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	ch := r.key(channel)
	if err := r.client.Publish(ctx, ch, data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", ch, err)
	}
	r.logger.WithField("channel", ch).Debug("published event")
	return nil
}

// Subscribe calls handler with each payload on channel until ctx is cancelled.
func (r *Redis) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	ch := r.key(channel)
	pubsub := r.client.Subscribe(ctx, ch)
	defer pubsub.Close()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				r.logger.WithField("channel", ch).Warn("redis subscription channel closed")
				return nil
			}
			handler([]byte(msg.Payload))
		}
	}
}
