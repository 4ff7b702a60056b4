package engine

import (
	"sync"

	"github.com/staleserve/staleserve/pkg/cache"
)

// regenLock is the per-key exclusivity token for an in-flight
// generation. Waiters block on done; err is written once before done
// is closed and may be read safely afterwards.
type regenLock struct {
	done chan struct{}
	err  error
}

// lockTable tracks at most one regenLock per cache key. It implements
// the coalescing check-then-act sequence: callers acquire, re-check
// cache state, and release when the generation completes.
type lockTable struct {
	mu       sync.Mutex
	inflight map[cache.Key]*regenLock
}

func newLockTable() *lockTable {
	return &lockTable{inflight: make(map[cache.Key]*regenLock)}
}

// acquire returns (lock, true) when the caller now holds the key's
// lock, or (existing, false) when another generation is already in
// flight. In the latter case the caller may wait on existing.done or
// skip, but must not release.
func (t *lockTable) acquire(key cache.Key) (*regenLock, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.inflight[key]; ok {
		return l, false
	}
	l := &regenLock{done: make(chan struct{})}
	t.inflight[key] = l
	return l, true
}

// release destroys the lock, publishing err to any waiters. Must be
// called exactly once per successful acquire, on success and failure
// alike.
func (t *lockTable) release(key cache.Key, l *regenLock, err error) {
	t.mu.Lock()
	delete(t.inflight, key)
	t.mu.Unlock()

	l.err = err
	close(l.done)
}

// held reports whether a generation is in flight for key.
func (t *lockTable) held(key cache.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inflight[key]
	return ok
}
