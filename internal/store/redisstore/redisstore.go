// Package redisstore provides a Redis-backed store.Backend.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// scanBatch is the COUNT hint used when clearing a namespace.
const scanBatch = 256

// Backend stores items as plain Redis strings under a key prefix.
type Backend struct {
	client redis.Cmdable
	prefix string
}

// New returns a Backend that keeps its keys under prefix.
func New(client redis.Cmdable, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

// Prefix returns the namespace prefix of b.
func (b *Backend) Prefix() string { return b.prefix }

func (b *Backend) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := b.client.Get(ctx, b.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

func (b *Backend) SetItem(ctx context.Context, key, value string) error {
	if err := b.client.Set(ctx, b.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) RemoveItem(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the prefix. An empty prefix would wipe the
// whole database, so it is refused.
func (b *Backend) Clear(ctx context.Context) error {
	if b.prefix == "" {
		return fmt.Errorf("refusing to clear redis backend without a key prefix")
	}

	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, b.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s*: %w", b.prefix, err)
		}
		if len(keys) > 0 {
			if err := b.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
