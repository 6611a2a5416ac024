package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry is one stored value with its tag set and expiry instant.
type memoryEntry struct {
	value     []byte
	tags      map[string]bool
	expiresAt time.Time
}

// MemoryBackend implements Backend in process memory. It mirrors the Redis
// backend's tag semantics and exists for tests and single-process
// deployments where a cache network hop buys nothing.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	byTag   map[string]map[string]bool

	// now is swappable so expiry behavior is testable without sleeping.
	now func() time.Time
}

// NewMemoryBackend creates an empty in-process Backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: map[string]*memoryEntry{},
		byTag:   map[string]map[string]bool{},
		now:     time.Now,
	}
}

// Ensure MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)

// Get implements Backend.Get
// Expired entries are dropped lazily on access.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if b.now().After(entry.expiresAt) {
		b.mu.Lock()
		b.removeLocked(key)
		b.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set implements Backend.Set
func (b *MemoryBackend) Set(
	_ context.Context,
	key string,
	value []byte,
	ttl time.Duration,
	tags []string,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Replacing an entry drops its old tag memberships first.
	b.removeLocked(key)

	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
		if b.byTag[tag] == nil {
			b.byTag[tag] = map[string]bool{}
		}
		b.byTag[tag][key] = true
	}

	b.entries[key] = &memoryEntry{
		value:     value,
		tags:      tagSet,
		expiresAt: b.now().Add(ttl),
	}
	return nil
}

// InvalidateTags implements Backend.InvalidateTags
func (b *MemoryBackend) InvalidateTags(_ context.Context, tags ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tag := range tags {
		for key := range b.byTag[tag] {
			b.removeLocked(key)
		}
		delete(b.byTag, tag)
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// removeLocked deletes an entry and unindexes it from every tag it carries.
// Callers must hold the write lock.
func (b *MemoryBackend) removeLocked(key string) {
	entry, ok := b.entries[key]
	if !ok {
		return
	}
	for tag := range entry.tags {
		delete(b.byTag[tag], key)
		if len(b.byTag[tag]) == 0 {
			delete(b.byTag, tag)
		}
	}
	delete(b.entries, key)
}
