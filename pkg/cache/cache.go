package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

// shardCount is the number of independent mutex-guarded maps. Keys are
// hashed onto shards so same-key operations serialize while unrelated
// keys proceed in parallel.
const shardCount = 32

// Cache is an in-memory artifact cache. It is safe for concurrent use.
// Construct one explicitly at process start and pass it to the engine;
// there is no ambient global instance.
type Cache struct {
	shards [shardCount]shard
	now    func() time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the cache's time source. Used in tests to drive
// staleness deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{now: time.Now}
	for i := range c.shards {
		c.shards[i].entries = make(map[Key]*Entry)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) shard(key Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &c.shards[h.Sum32()%shardCount]
}

// Get returns a snapshot of the entry for key. It is a pure lookup: no
// state transitions, never blocks on generation. The returned Entry is
// a copy; readers always observe either the previous artifact or a
// fully written new one.
func (c *Cache) Get(key Key) (Entry, bool) {
	s := c.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Put inserts or replaces the entry for key with a freshly generated
// artifact. The entry is timestamped with the current time and its
// state set to fresh. The swap is atomic with respect to Get.
func (c *Cache) Put(key Key, artifact Artifact, revalidate time.Duration) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &Entry{
		Artifact:    artifact,
		GeneratedAt: c.now(),
		Revalidate:  revalidate,
		State:       StateFresh,
	}
}

// Restore inserts an entry as-is, keeping its original generation
// timestamp. Used to warm the cache from a persistent store; a
// following MarkStale re-derives staleness from the preserved
// timestamp.
func (c *Cache) Restore(key Key, entry Entry) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.State = StateFresh
	s.entries[key] = &entry
}

// MarkStale transitions the entry fresh→stale if its revalidation
// interval has elapsed. Idempotent; entries with no interval never go
// stale. Invoked by the scheduler on lookup, not by a background timer.
func (c *Cache) MarkStale(key Key) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.State != StateFresh || !e.revalidates() {
		return
	}
	if c.now().Sub(e.GeneratedAt) >= e.Revalidate {
		e.State = StateStale
	}
}

// BeginRegeneration transitions the entry stale→regenerating and
// reports whether the transition happened. A false return means the
// entry is absent, fresh, or already regenerating; the caller must not
// dispatch a refresh in that case.
func (c *Cache) BeginRegeneration(key Key) bool {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.State != StateStale {
		return false
	}
	e.State = StateRegenerating
	return true
}

// FailRegeneration transitions the entry regenerating→stale, keeping
// the last good artifact so it stays eligible for another attempt.
func (c *Cache) FailRegeneration(key Key) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.State != StateRegenerating {
		return
	}
	e.State = StateStale
}

// Invalidate removes the entry for key so the next Get reports absent.
// Used for on-demand revalidation. Idempotent.
func (c *Cache) Invalidate(key Key) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Len returns the number of cached entries across all shards.
func (c *Cache) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}
	return n
}

// Keys returns the keys of all cached entries, in no particular order.
func (c *Cache) Keys() []Key {
	var keys []Key
	for i := range c.shards {
		c.shards[i].mu.RLock()
		for k := range c.shards[i].entries {
			keys = append(keys, k)
		}
		c.shards[i].mu.RUnlock()
	}
	return keys
}
