package cache

import "context"

// Store persists artifacts outside process memory. The in-memory cache
// stays authoritative for state transitions; a Store is an optional
// write-through backend used to survive restarts and to share artifacts
// between instances.
//
// Implementations: sqlitestore, redisstore, s3store.
type Store interface {
	// Put persists the entry for key, replacing any previous value.
	Put(ctx context.Context, key Key, entry Entry) error

	// Get loads the entry for key. The second return value is false if
	// the store has no entry for key.
	Get(ctx context.Context, key Key) (Entry, bool, error)

	// Delete removes the entry for key. Removing a missing key is not
	// an error.
	Delete(ctx context.Context, key Key) error

	// Close releases the store's resources.
	Close() error
}
