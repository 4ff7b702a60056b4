// Package sqlitestore persists cache entries in a local SQLite
// database, letting a single instance keep its generated artifacts
// across restarts.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/staleserve/staleserve/pkg/cache"
)

const createTable = `
CREATE TABLE IF NOT EXISTS artifacts (
	key TEXT PRIMARY KEY,
	body BLOB NOT NULL,
	status INTEGER NOT NULL,
	headers TEXT NOT NULL,
	generated_at DATETIME NOT NULL,
	revalidate_ns INTEGER NOT NULL
);
`

// Store is a cache.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Put persists the entry for key, replacing any previous row.
func (s *Store) Put(ctx context.Context, key cache.Key, entry cache.Entry) error {
	headers, err := json.Marshal(entry.Artifact.Headers)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode headers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (key, body, status, headers, generated_at, revalidate_ns)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.String(), entry.Artifact.Body, entry.Artifact.Status, string(headers),
		entry.GeneratedAt.UTC(), int64(entry.Revalidate),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: put %s: %w", key, err)
	}
	return nil
}

// Get loads the entry for key. Persisted entries are always reported
// fresh; the in-memory cache re-derives staleness from GeneratedAt on
// its next lookup.
func (s *Store) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	var (
		body         []byte
		status       int
		headersJSON  string
		generatedAt  time.Time
		revalidateNs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, status, headers, generated_at, revalidate_ns FROM artifacts WHERE key = ?`,
		key.String(),
	).Scan(&body, &status, &headersJSON, &generatedAt, &revalidateNs)
	if err == sql.ErrNoRows {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("sqlitestore: get %s: %w", key, err)
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
		return cache.Entry{}, false, fmt.Errorf("sqlitestore: decode headers: %w", err)
	}

	return cache.Entry{
		Artifact: cache.Artifact{
			Body:    body,
			Status:  status,
			Headers: headers,
		},
		GeneratedAt: generatedAt,
		Revalidate:  time.Duration(revalidateNs),
		State:       cache.StateFresh,
	}, true, nil
}

// Delete removes the entry for key.
func (s *Store) Delete(ctx context.Context, key cache.Key) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
