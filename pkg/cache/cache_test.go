package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testArtifact(body string) Artifact {
	return Artifact{Body: []byte(body), Status: 200, Headers: map[string]string{"Content-Type": "text/html"}}
}

func TestPutGet(t *testing.T) {
	c := New()
	key := NewKey("/products/[id]", map[string]string{"id": "42"}, nil)

	if _, ok := c.Get(key); ok {
		t.Fatal("Get on empty cache returned an entry")
	}

	c.Put(key, testArtifact("hello"), 10*time.Second)

	e, ok := c.Get(key)
	if !ok {
		t.Fatal("Get after Put returned absent")
	}
	if string(e.Artifact.Body) != "hello" {
		t.Errorf("Body = %q, want %q", e.Artifact.Body, "hello")
	}
	if e.State != StateFresh {
		t.Errorf("State = %v, want fresh", e.State)
	}
	if e.Revalidate != 10*time.Second {
		t.Errorf("Revalidate = %v, want 10s", e.Revalidate)
	}
}

func TestMarkStale(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	key := NewKey("/blog/[slug]", map[string]string{"slug": "a"}, nil)

	c.Put(key, testArtifact("v1"), 10*time.Second)

	// Inside the interval: stays fresh.
	clock.Advance(5 * time.Second)
	c.MarkStale(key)
	if e, _ := c.Get(key); e.State != StateFresh {
		t.Errorf("State at +5s = %v, want fresh", e.State)
	}

	// Past the interval: goes stale, artifact retained.
	clock.Advance(10 * time.Second)
	c.MarkStale(key)
	e, _ := c.Get(key)
	if e.State != StateStale {
		t.Errorf("State at +15s = %v, want stale", e.State)
	}
	if string(e.Artifact.Body) != "v1" {
		t.Error("stale transition must retain the artifact")
	}

	// Idempotent.
	c.MarkStale(key)
	if e, _ := c.Get(key); e.State != StateStale {
		t.Error("MarkStale is not idempotent")
	}
}

func TestMarkStaleNeverRevalidates(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	key := NewKey("/about", nil, nil)

	c.Put(key, testArtifact("static"), 0)
	clock.Advance(1000 * time.Hour)
	c.MarkStale(key)

	if e, _ := c.Get(key); e.State != StateFresh {
		t.Errorf("State = %v, want fresh for a permanently static entry", e.State)
	}
}

func TestRegenerationTransitions(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	key := NewKey("/p/[id]", map[string]string{"id": "1"}, nil)

	// Absent and fresh entries reject BeginRegeneration.
	if c.BeginRegeneration(key) {
		t.Error("BeginRegeneration on absent key succeeded")
	}
	c.Put(key, testArtifact("v1"), 10*time.Second)
	if c.BeginRegeneration(key) {
		t.Error("BeginRegeneration on fresh entry succeeded")
	}

	clock.Advance(15 * time.Second)
	c.MarkStale(key)
	if !c.BeginRegeneration(key) {
		t.Fatal("BeginRegeneration on stale entry failed")
	}
	if e, _ := c.Get(key); e.State != StateRegenerating {
		t.Errorf("State = %v, want regenerating", e.State)
	}

	// A second dispatch must be refused while one is in flight.
	if c.BeginRegeneration(key) {
		t.Error("BeginRegeneration succeeded while already regenerating")
	}

	// Failure: back to stale, old artifact kept.
	c.FailRegeneration(key)
	e, _ := c.Get(key)
	if e.State != StateStale {
		t.Errorf("State after failure = %v, want stale", e.State)
	}
	if string(e.Artifact.Body) != "v1" {
		t.Error("failed regeneration must keep the previous artifact")
	}

	// Success path: Put replaces the artifact and resets the state.
	if !c.BeginRegeneration(key) {
		t.Fatal("BeginRegeneration after failure refused")
	}
	c.Put(key, testArtifact("v2"), 10*time.Second)
	e, _ = c.Get(key)
	if e.State != StateFresh || string(e.Artifact.Body) != "v2" {
		t.Errorf("entry after successful regeneration = %v %q", e.State, e.Artifact.Body)
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	key := NewKey("/x", nil, nil)

	c.Put(key, testArtifact("v1"), time.Minute)
	c.Invalidate(key)

	if _, ok := c.Get(key); ok {
		t.Error("Get after Invalidate returned an entry")
	}

	// Idempotent on missing keys.
	c.Invalidate(key)
}

func TestGetReturnsCopy(t *testing.T) {
	c := New()
	key := NewKey("/x", nil, nil)
	c.Put(key, testArtifact("v1"), time.Minute)

	e, _ := c.Get(key)
	e.State = StateStale

	if fresh, _ := c.Get(key); fresh.State != StateFresh {
		t.Error("mutating a returned Entry affected the cache")
	}
}

func TestKeyDeterministic(t *testing.T) {
	a := NewKey("/users/[id]/[tab]", map[string]string{"id": "1", "tab": "posts"}, nil)
	b := NewKey("/users/[id]/[tab]", map[string]string{"tab": "posts", "id": "1"}, nil)
	if a != b {
		t.Errorf("keys differ for identical bindings: %s vs %s", a, b)
	}

	other := NewKey("/users/[id]/[tab]", map[string]string{"id": "1", "tab": "likes"}, nil)
	if a == other {
		t.Error("keys collide for different bindings")
	}
}

func TestKeyWildcardBoundaries(t *testing.T) {
	a := NewKey("/blog/[...slug]", nil, map[string][]string{"slug": {"a", "b"}})
	b := NewKey("/blog/[...slug]", nil, map[string][]string{"slug": {"a/b"}})
	if a == b {
		t.Error("keys collide across wildcard segment boundaries")
	}
}

func TestKeyRoute(t *testing.T) {
	k := NewKey("/blog/[...slug]", nil, map[string][]string{"slug": {"a"}})
	if k.Route() != "/blog/[...slug]" {
		t.Errorf("Route() = %q, want %q", k.Route(), "/blog/[...slug]")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := NewKey("/p/[id]", map[string]string{"id": fmt.Sprint(j % 10)}, nil)
				switch j % 4 {
				case 0:
					c.Put(key, testArtifact("v"), time.Minute)
				case 1:
					c.Get(key)
				case 2:
					c.MarkStale(key)
				case 3:
					c.Invalidate(key)
				}
			}
		}(i)
	}
	wg.Wait()
}
