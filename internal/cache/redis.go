package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tagSetTTL bounds how long a tag's key index lives without being refreshed.
// It must outlive the longest entry TTL, otherwise an entry could survive
// its tag index and become uninvalidatable.
const tagSetTTL = 24 * time.Hour

// RedisBackend implements Backend on a Redis instance or cluster. Values are
// plain keys; each tag is a SET of the keys carrying it, so invalidating a
// tag is a set read plus a bulk delete.
type RedisBackend struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisBackend creates a Backend over the given client. keyPrefix
// namespaces all keys so the service can share an instance.
func NewRedisBackend(client redis.UniversalClient, keyPrefix string) *RedisBackend {
	if client == nil {
		panic("client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = "taskdeck"
	}
	return &RedisBackend{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Ensure RedisBackend implements Backend
var _ Backend = (*RedisBackend)(nil)

func (b *RedisBackend) entryKey(key string) string {
	return b.keyPrefix + ":entry:" + key
}

func (b *RedisBackend) tagKey(tag string) string {
	return b.keyPrefix + ":tag:" + tag
}

// Get implements Backend.Get
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, b.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

// Set implements Backend.Set
// The entry and its tag-index memberships are written in one pipeline.
func (b *RedisBackend) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
	tags []string,
) error {
	entryKey := b.entryKey(key)

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, entryKey, value, ttl)
	for _, tag := range tags {
		tagKey := b.tagKey(tag)
		pipe.SAdd(ctx, tagKey, entryKey)
		pipe.Expire(ctx, tagKey, tagSetTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateTags implements Backend.InvalidateTags
// Membership is a set union: an entry is evicted when any one of its tags is
// invalidated.
func (b *RedisBackend) InvalidateTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	tagKeys := make([]string, len(tags))
	for i, tag := range tags {
		tagKeys[i] = b.tagKey(tag)
	}

	entryKeys, err := b.client.SUnion(ctx, tagKeys...).Result()
	if err != nil {
		return fmt.Errorf("redis sunion: %w", err)
	}

	pipe := b.client.TxPipeline()
	if len(entryKeys) > 0 {
		pipe.Del(ctx, entryKeys...)
	}
	pipe.Del(ctx, tagKeys...)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}
