package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:session:"

// LocalStore implements repository.LocalStore for one browser session.
// Keys are namespaced by session id and expire after ttl without access.
type LocalStore struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// NewLocalStore creates a Redis-backed store for sessionID. A zero ttl
// disables expiry.
func NewLocalStore(client *redis.Client, sessionID string, ttl time.Duration) *LocalStore {
	return &LocalStore{
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
	}
}

// Key returns the Redis key holding the value for key.
func (s *LocalStore) Key(key string) string {
	return keyPrefix + s.sessionID + ":" + key
}

// GetItem reads key and, when found, pushes its expiry forward.
func (s *LocalStore) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	var cmd *redis.StringCmd
	if s.ttl > 0 {
		cmd = s.client.GetEx(ctx, s.Key(key), s.ttl)
	} else {
		cmd = s.client.Get(ctx, s.Key(key))
	}

	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// SetItem writes key with the configured ttl.
func (s *LocalStore) SetItem(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.Key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (s *LocalStore) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
