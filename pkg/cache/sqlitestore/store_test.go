package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/staleserve/staleserve/pkg/cache"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := cache.NewKey("/blog/[slug]", map[string]string{"slug": "hello"}, nil)

	entry := cache.Entry{
		Artifact: cache.Artifact{
			Body:    []byte("<html>hi</html>"),
			Status:  200,
			Headers: map[string]string{"Content-Type": "text/html"},
		},
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Revalidate:  30 * time.Second,
	}

	if err := s.Put(ctx, key, entry); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Get returned absent after Put")
	}
	if string(got.Artifact.Body) != "<html>hi</html>" {
		t.Errorf("Body = %q", got.Artifact.Body)
	}
	if got.Artifact.Status != 200 {
		t.Errorf("Status = %d, want 200", got.Artifact.Status)
	}
	if got.Artifact.Headers["Content-Type"] != "text/html" {
		t.Errorf("Headers = %v", got.Artifact.Headers)
	}
	if got.Revalidate != 30*time.Second {
		t.Errorf("Revalidate = %v, want 30s", got.Revalidate)
	}
	if !got.GeneratedAt.Equal(entry.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, entry.GeneratedAt)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(context.Background(), cache.NewKey("/missing", nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Get on empty store reported an entry")
	}
}

func TestPutReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := cache.NewKey("/x", nil, nil)

	for _, body := range []string{"v1", "v2"} {
		err := s.Put(ctx, key, cache.Entry{
			Artifact:    cache.Artifact{Body: []byte(body), Status: 200},
			GeneratedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got.Artifact.Body) != "v2" {
		t.Errorf("Body = %q, want v2", got.Artifact.Body)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := cache.NewKey("/x", nil, nil)

	if err := s.Put(ctx, key, cache.Entry{Artifact: cache.Artifact{Body: []byte("v1")}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, key); ok {
		t.Error("entry still present after Delete")
	}

	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Delete on missing key: %v", err)
	}
}
