// Package cache provides the tag-indexed read-through cache that fronts the
// expensive task reads. Entries carry one or more tags; invalidating a tag
// evicts every entry that carries it, regardless of the entry's other tags.
// The backend is best-effort: any backend failure degrades a read to the
// live producer instead of failing it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/platform/metrics"
)

// Backend is the storage a Cache runs on. Implementations must evict an
// entry when any one of its tags is invalidated, not only when all are.
type Backend interface {
	// Get returns the stored value for key and whether a live entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl, indexed under every tag.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error

	// InvalidateTags evicts every entry carrying any of the given tags.
	InvalidateTags(ctx context.Context, tags ...string) error
}

// Cache wraps a Backend with logging and metrics. Construct one per process
// and pass it by reference to dependents.
type Cache struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Cache over the given backend.
func New(backend Backend, logger *slog.Logger, m *metrics.Metrics) *Cache {
	if backend == nil {
		panic("backend cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		backend: backend,
		logger:  logger.With(slog.String("component", "cache")),
		metrics: m,
	}
}

// InvalidateTags evicts every entry carrying any of the given tags. Backend
// failures are logged as degraded-mode events and returned; callers on
// mutation paths decide whether to surface them, since the underlying write
// has already committed.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	if err := c.backend.InvalidateTags(ctx, tags...); err != nil {
		if c.metrics != nil {
			c.metrics.CacheErrors.Inc()
		}
		c.logger.Error("cache invalidation failed, serving degraded",
			slog.String("error", err.Error()),
			slog.String("tags", strings.Join(tags, ",")))
		return err
	}

	return nil
}

// Query is the read-through helper. On a live hit it returns the cached
// value without invoking producer. On a miss it invokes producer, stores the
// result under key with the given ttl and tags, and returns it. Producer
// errors are returned unchanged and never cached, so an absent result cannot
// mask a concurrently completed create. Backend failures on either side fall
// through to producer.
func Query[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	tags []string,
	producer func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CacheErrors.Inc()
		}
		c.logger.Warn("cache read failed, falling through to producer",
			slog.String("error", err.Error()),
			slog.String("key", key))
	} else if ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			if c.metrics != nil {
				c.metrics.CacheHits.Inc()
			}
			return value, nil
		}
		// Undecodable entries are treated as misses and overwritten below.
		c.logger.Warn("cache entry failed to decode, treating as miss",
			slog.String("key", key))
	}

	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}

	value, err := producer(ctx)
	if err != nil {
		return zero, err
	}

	if len(tags) == 0 {
		c.logger.Warn("refusing to cache untagged entry", slog.String("key", key))
		return value, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache value failed to encode, serving uncached",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return value, nil
	}

	if err := c.backend.Set(ctx, key, encoded, ttl, tags); err != nil {
		if c.metrics != nil {
			c.metrics.CacheErrors.Inc()
		}
		c.logger.Warn("cache write failed, serving uncached",
			slog.String("error", err.Error()),
			slog.String("key", key))
	}

	return value, nil
}

// Key derives a deterministic cache key from a namespace and its parts.
// Parts are JSON-serialized and hashed, so structurally equal requests map
// to the same key without caller-assembled strings.
func Key(namespace string, parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		encoded, err := json.Marshal(part)
		if err != nil {
			// Fall back to the fmt representation; key stability matters
			// more than canonical encoding here.
			encoded = []byte(fmt.Sprintf("%+v", part))
		}
		h.Write(encoded)
		h.Write([]byte{0})
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Tag constructors. Mutations and read paths must agree on these exactly;
// building them in one place keeps the invalidation sets reviewable.

// TaskTag is the entity tag for one task.
func TaskTag(id uuid.UUID) string {
	return "task:" + id.String()
}

// OwnerTag covers every cached read scoped to one owner.
func OwnerTag(ownerID uuid.UUID) string {
	return "user:" + ownerID.String()
}

// StatsTag covers the owner's cached aggregate views.
func StatsTag(ownerID uuid.UUID) string {
	return "stats:" + ownerID.String()
}

// SearchTag covers the owner's cached listings and searches.
func SearchTag(ownerID uuid.UUID) string {
	return "search:" + ownerID.String()
}
