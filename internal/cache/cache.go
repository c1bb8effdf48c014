// Package cache memoises heavy results for a fixed TTL and fans events out.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store is a TTL key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Publisher broadcasts events on named channels.
type Publisher interface {
	Publish(ctx context.Context, channel string, v any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Fanout publishes every event to each publisher in order and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, channel string, v any) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, channel, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetJSON decodes the cached value of key into v. ok is false on a miss.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key for ttl.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}
