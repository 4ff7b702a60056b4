package engine

import (
	"context"
	"net/url"
	"time"
)

// RenderFunc is the externally supplied render collaborator for one
// route. Given the bound parameters it produces an artifact or fails.
// It must be reentrant and must not mutate cache state; data fetching
// and templating happen behind this boundary, the engine treats it as
// opaque. Calls may be slow; the engine never holds a cache lock
// across them.
type RenderFunc func(ctx context.Context, req *RenderRequest) (*RenderResult, error)

// RenderRequest carries the resolved route and bindings into a render
// call.
type RenderRequest struct {
	// Route is the canonical pattern of the matched route.
	Route string

	// Path is the canonical request path.
	Path string

	// Params maps dynamic segment names to their bound values.
	Params map[string]string

	// Wildcards maps a catch-all segment name to its consumed
	// segments. At most one entry; may be empty for an optional
	// catch-all.
	Wildcards map[string][]string

	// Query carries the request query, passed through for renderers
	// that vary on it. Query values are not part of the cache key.
	Query url.Values
}

// RenderResult is the outcome of a successful render call.
type RenderResult struct {
	// Body is the rendered payload.
	Body []byte

	// Status is the response status code. Zero means 200.
	Status int

	// Headers are response headers to cache with the payload.
	Headers map[string]string

	// Revalidate overrides the route's revalidation interval for this
	// artifact. Nil keeps the route default; a pointer to zero makes
	// the artifact permanently static.
	Revalidate *time.Duration
}

// ParamSet is one known parameter combination for a dynamic route.
type ParamSet struct {
	Params    map[string]string
	Wildcards map[string][]string
}

// RouteDef declares one route at engine build time. No dynamic
// re-registration happens at runtime; the set of defs is compiled once
// into the route table.
type RouteDef struct {
	// Pattern is the route pattern in bracket syntax.
	Pattern string

	// Render generates artifacts for this route. Required.
	Render RenderFunc

	// Revalidate is the default revalidation interval for artifacts of
	// this route. Zero means never revalidate (permanently static).
	Revalidate time.Duration

	// Fallback is the policy for unknown parameter combinations.
	// Default: FallbackBlock.
	Fallback FallbackMode

	// Placeholder is the body served while a placeholder-mode route
	// generates its first artifact.
	Placeholder []byte

	// PlaceholderStatus is the status code for placeholder responses.
	// Zero means 202.
	PlaceholderStatus int

	// Prerender lists parameter combinations known ahead of time.
	// Warmup generates them eagerly; strict-mode routes only ever
	// serve combinations from this list.
	Prerender []ParamSet
}

// Request is a normalized request delivered by the external HTTP layer.
type Request struct {
	Path   string
	Method string
	Query  url.Values
}

// Response is what the external HTTP layer turns into an actual
// response.
type Response struct {
	Body    []byte
	Status  int
	Headers map[string]string

	// Cache describes how the response was produced: "hit", "stale",
	// "miss", or "placeholder". Exposed as the X-Staleserve-Cache
	// header by the HTTP layer.
	Cache string
}
