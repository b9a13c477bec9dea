package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each slot as a redis string key. Intended for shared
// server deployments where a local directory is not durable enough.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to the redis instance described by url
// (redis://[user:pass@]host:port/db). Keys are namespaced with prefix.
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &RedisStore{
		client:    redis.NewClient(opts),
		keyPrefix: prefix,
	}, nil
}

func (rs *RedisStore) slotKey(key string) string {
	if rs.keyPrefix == "" {
		return key
	}

	return rs.keyPrefix + ":" + key
}

// ReadItem returns the slot value, or ErrKeyNotFound when the key is absent.
func (rs *RedisStore) ReadItem(ctx context.Context, key string) ([]byte, error) {
	value, err := rs.client.Get(ctx, rs.slotKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}

		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}

	return value, nil
}

// WriteItem replaces the slot value without expiration.
func (rs *RedisStore) WriteItem(ctx context.Context, key string, value []byte) error {
	if err := rs.client.Set(ctx, rs.slotKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}

	return nil
}

// RemoveItem deletes the slot key.
func (rs *RedisStore) RemoveItem(ctx context.Context, key string) error {
	removed, err := rs.client.Del(ctx, rs.slotKey(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", key, err)
	}

	if removed == 0 {
		return ErrKeyNotFound
	}

	return nil
}

// HealthCheck pings the redis server.
func (rs *RedisStore) HealthCheck(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close closes the underlying client connection.
func (rs *RedisStore) Close(_ context.Context) error {
	return rs.client.Close()
}
