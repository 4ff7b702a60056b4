package engine

import (
	"errors"
	"fmt"

	"github.com/staleserve/staleserve/pkg/cache"
)

// Sentinel errors surfaced to the external HTTP layer. NotFound and the
// generation errors map to distinct status codes so clients can tell
// "doesn't exist" from "temporarily unavailable".
var (
	// ErrNotFound is returned when no pattern matches a request path,
	// or a strict-fallback route rejects an unknown parameter set.
	ErrNotFound = errors.New("engine: not found")

	// ErrGenerationTimeout is returned when a blocking generation
	// exceeded its deadline. The regeneration lock is released so a
	// later request may retry.
	ErrGenerationTimeout = errors.New("engine: generation timed out")
)

// GenerationError reports a failed render call. On a blocking path it
// is surfaced to the caller; on a background refresh it is logged and
// the stale artifact is retained.
type GenerationError struct {
	Route string
	Key   cache.Key
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("engine: generation failed for %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying render error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}
