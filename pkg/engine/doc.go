// Package engine serves resolved routes from the artifact cache under
// a stale-while-revalidate discipline.
//
// The engine owns the request flow: canonicalize the path, resolve it
// against the route table, derive a cache key, and then either serve a
// cached artifact, generate one while the request blocks, or serve the
// stale artifact and refresh it in the background. Render functions
// are supplied per route by the caller; the engine treats them as
// opaque collaborators and is the only writer to the cache.
//
// Concurrency guarantees:
//   - at most one in-flight generation per key (single-flight)
//   - end users never block on a background refresh
//   - reads observe either the previous artifact or the new one,
//     never a partial write
//   - a failed refresh keeps the last good artifact
package engine
