// Package router compiles route patterns and resolves request paths
// against them.
//
// The router provides:
//   - Pattern compilation from segment lists or bracket syntax
//   - A build-time route table sorted by specificity
//   - First-match resolution with parameter extraction
//
// # Pattern Syntax
//
// Route patterns are written with bracket segments:
//
//	/about                → static route
//	/products/[id]        → dynamic segment, binds id
//	/blog/[...slug]       → catch-all, binds one or more segments
//	/docs/[[...slug]]     → optional catch-all, binds zero or more
//
// # Specificity
//
// Patterns are matched most-specific first, position by position from
// the left: at the first position where two patterns differ in kind,
// static outranks dynamic, dynamic outranks catch-all, and catch-all
// outranks optional catch-all. The ordering is a pure function of
// pattern shape, so /products/featured always wins over /products/[id]
// and /a/[x]/[y] always wins over /[x]/b/c, without any special-casing
// in the matcher.
package router
