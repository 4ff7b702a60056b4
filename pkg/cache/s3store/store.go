// Package s3store persists cache entries as S3 objects, the usual
// shared artifact backend for serverless and multi-instance
// deployments.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/staleserve/staleserve/pkg/cache"
)

// Store is a cache.Store backed by an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := s3store.New(s3.NewFromConfig(cfg), "my-bucket", "artifacts/")
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// storedEntry is the persisted JSON shape of a cache entry.
type storedEntry struct {
	Body        []byte            `json:"body"`
	Status      int               `json:"status"`
	Headers     map[string]string `json:"headers,omitempty"`
	GeneratedAt int64             `json:"generated_at_unix_ns"`
	Revalidate  int64             `json:"revalidate_ns"`
}

// New creates a Store writing objects under prefix in bucket.
func New(client *s3.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) objectKey(key cache.Key) string {
	return s.prefix + key.String()
}

// Put persists the entry for key, replacing any previous object.
func (s *Store) Put(ctx context.Context, key cache.Key, entry cache.Entry) error {
	data, err := json.Marshal(storedEntry{
		Body:        entry.Artifact.Body,
		Status:      entry.Artifact.Status,
		Headers:     entry.Artifact.Headers,
		GeneratedAt: entry.GeneratedAt.UnixNano(),
		Revalidate:  int64(entry.Revalidate),
	})
	if err != nil {
		return fmt.Errorf("s3store: encode %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3store: put %s: %w", key, err)
	}
	return nil
}

// Get loads the entry for key.
func (s *Store) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return cache.Entry{}, false, nil
		}
		return cache.Entry{}, false, fmt.Errorf("s3store: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("s3store: read %s: %w", key, err)
	}

	var stored storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return cache.Entry{}, false, fmt.Errorf("s3store: decode %s: %w", key, err)
	}

	return cache.Entry{
		Artifact: cache.Artifact{
			Body:    stored.Body,
			Status:  stored.Status,
			Headers: stored.Headers,
		},
		GeneratedAt: time.Unix(0, stored.GeneratedAt).UTC(),
		Revalidate:  time.Duration(stored.Revalidate),
		State:       cache.StateFresh,
	}, true, nil
}

// Delete removes the entry for key.
func (s *Store) Delete(ctx context.Context, key cache.Key) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3store: delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the S3 client is owned by the caller.
func (s *Store) Close() error { return nil }
