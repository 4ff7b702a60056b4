// Package cache stores generated artifacts keyed by route identity and
// parameter bindings, and tracks their revalidation state.
//
// The cache is a shared mutable structure designed for many concurrent
// readers and writers. Keys are hashed onto a fixed set of shards so
// operations on one key never block unrelated keys. State transitions
// are driven by the regeneration scheduler, never by a timer, which
// keeps behavior deterministic and testable.
package cache

import "time"

// Artifact is a generated response payload plus its metadata. The
// engine treats the payload as opaque.
type Artifact struct {
	// Body is the rendered payload.
	Body []byte

	// Status is the response status code.
	Status int

	// Headers are response headers to forward with the payload.
	Headers map[string]string
}

// State is the generation state of a cache entry.
type State int

const (
	// StateFresh means the artifact is within its revalidation interval.
	StateFresh State = iota

	// StateStale means the revalidation interval has elapsed; the
	// artifact is still servable but eligible for regeneration.
	StateStale

	// StateRegenerating means a refresh is in flight. The previous
	// artifact keeps being served until the refresh completes.
	StateRegenerating
)

// String returns the state name for logs and metrics labels.
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRegenerating:
		return "regenerating"
	default:
		return "unknown"
	}
}

// Entry is a cached artifact plus its lifecycle metadata.
//
// Lifecycle: created fresh on first successful generation; fresh→stale
// once the revalidation interval elapses; stale→regenerating when a
// refresh is dispatched; regenerating→fresh on success or back to stale
// (keeping the old artifact) on failure. Entries are only removed by an
// explicit Invalidate call.
type Entry struct {
	// Artifact is the last successfully generated artifact.
	Artifact Artifact

	// GeneratedAt is when Artifact was generated.
	GeneratedAt time.Time

	// Revalidate is the interval after which the entry becomes stale.
	// Zero means never: the entry is permanently static.
	Revalidate time.Duration

	// State is the entry's generation state.
	State State
}

// revalidates reports whether the entry auto-revalidates at all.
func (e *Entry) revalidates() bool { return e.Revalidate > 0 }
