package engine

import "fmt"

// FallbackMode is the per-route policy for requests that match a
// dynamic pattern but have no cached artifact and no prerendered
// parameter set. It is fixed at table build time.
type FallbackMode int

const (
	// FallbackBlock generates unknown parameter combinations
	// synchronously on first request, then serves them from cache.
	FallbackBlock FallbackMode = iota

	// FallbackStrict rejects unknown parameter combinations with
	// NotFound. The render function is never invoked for them.
	FallbackStrict

	// FallbackPlaceholder returns a lightweight placeholder artifact
	// immediately and generates the real one in the background.
	FallbackPlaceholder
)

// String returns the mode name used in manifests and logs.
func (m FallbackMode) String() string {
	switch m {
	case FallbackBlock:
		return "block"
	case FallbackStrict:
		return "strict"
	case FallbackPlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("FallbackMode(%d)", int(m))
	}
}

// ParseFallbackMode parses a manifest mode name.
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch s {
	case "block", "":
		return FallbackBlock, nil
	case "strict":
		return FallbackStrict, nil
	case "placeholder":
		return FallbackPlaceholder, nil
	default:
		return 0, fmt.Errorf("engine: unknown fallback mode %q", s)
	}
}

// FallbackAction is the decided behavior for an uncached key.
type FallbackAction int

const (
	// ActionNotFound rejects the request without generating.
	ActionNotFound FallbackAction = iota

	// ActionBlock generates synchronously while the request waits.
	ActionBlock

	// ActionPlaceholder serves the placeholder and backfills in the
	// background.
	ActionPlaceholder
)

// DecideFallback picks the action for a cache miss. A parameter set is
// "known" when the route declared it for prerendering or the route
// binds no parameters at all. Known sets are always generated
// synchronously, whatever the mode: prerender declarations are a
// promise that the path exists.
func DecideFallback(mode FallbackMode, known bool) FallbackAction {
	if known {
		return ActionBlock
	}
	switch mode {
	case FallbackStrict:
		return ActionNotFound
	case FallbackPlaceholder:
		return ActionPlaceholder
	default:
		return ActionBlock
	}
}
