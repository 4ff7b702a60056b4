// Package redisstore persists cache entries in Redis so multiple
// instances can share generated artifacts.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/staleserve/staleserve/pkg/cache"
)

// keyPrefix namespaces artifact keys inside a shared Redis database.
const keyPrefix = "staleserve:artifact:"

// Store is a cache.Store backed by Redis. Entries carry no Redis TTL:
// staleness is the engine's concern, and entries are only removed by
// explicit invalidation.
type Store struct {
	client *redis.Client
}

// storedEntry is the persisted JSON shape of a cache entry.
type storedEntry struct {
	Body        []byte            `json:"body"`
	Status      int               `json:"status"`
	Headers     map[string]string `json:"headers,omitempty"`
	GeneratedAt int64             `json:"generated_at_unix_ns"`
	Revalidate  int64             `json:"revalidate_ns"`
}

// New creates a Store using the given Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Put persists the entry for key.
func (s *Store) Put(ctx context.Context, key cache.Key, entry cache.Entry) error {
	data, err := json.Marshal(storedEntry{
		Body:        entry.Artifact.Body,
		Status:      entry.Artifact.Status,
		Headers:     entry.Artifact.Headers,
		GeneratedAt: entry.GeneratedAt.UnixNano(),
		Revalidate:  int64(entry.Revalidate),
	})
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key.String(), data, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: put %s: %w", key, err)
	}
	return nil
}

// Get loads the entry for key.
func (s *Store) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key.String()).Bytes()
	if err == redis.Nil {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("redisstore: get %s: %w", key, err)
	}

	var stored storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return cache.Entry{}, false, fmt.Errorf("redisstore: decode %s: %w", key, err)
	}

	return stored.toEntry(), true, nil
}

// Delete removes the entry for key.
func (s *Store) Delete(ctx context.Context, key cache.Key) error {
	if err := s.client.Del(ctx, keyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (e storedEntry) toEntry() cache.Entry {
	return cache.Entry{
		Artifact: cache.Artifact{
			Body:    e.Body,
			Status:  e.Status,
			Headers: e.Headers,
		},
		GeneratedAt: time.Unix(0, e.GeneratedAt).UTC(),
		Revalidate:  time.Duration(e.Revalidate),
		State:       cache.StateFresh,
	}
}
