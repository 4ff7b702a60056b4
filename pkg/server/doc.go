// Package server exposes the regeneration engine over HTTP.
//
// The server mounts three surfaces on a chi router:
//
//   - All remaining paths serve cached artifacts through the engine.
//   - POST /__revalidate accepts on-demand invalidation requests.
//   - GET /__events streams engine events over WebSocket.
//   - GET /metrics serves Prometheus metrics.
//
// Engine errors map onto HTTP status codes: unresolvable routes and
// strict-mode rejections become 404, failed blocking generations 502,
// and generation timeouts 504. Every artifact response carries an
// X-Staleserve-Cache header describing how it was served.
package server
