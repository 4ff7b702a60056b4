package router

import "strings"

// Match is the result of resolving a request path. It is created per
// request and owned by the caller.
type Match struct {
	// Pattern is the matched pattern.
	Pattern *Pattern

	// Params maps each dynamic segment name to its bound path segment.
	Params map[string]string

	// Wildcards maps a catch-all segment name to the ordered path
	// segments it consumed. For an optional catch-all the slice may be
	// empty. At most one entry.
	Wildcards map[string][]string
}

// Resolve finds the best-matching pattern for a request path and
// extracts bound parameters. The path must already be canonical (see
// package routepath); a single trailing slash is tolerated. Patterns
// are tried in specificity order and the first match wins. Returns
// false if no pattern matches.
func (t *Table) Resolve(path string) (*Match, bool) {
	return t.ResolveSegments(splitPath(path))
}

// ResolveSegments resolves a path already split into segments.
func (t *Table) ResolveSegments(segments []string) (*Match, bool) {
	for _, p := range t.patterns {
		if m, ok := matchPattern(p, segments); ok {
			return m, true
		}
	}
	return nil, false
}

// matchPattern attempts positional matching of path segments against
// one pattern.
func matchPattern(p *Pattern, path []string) (*Match, bool) {
	specs := p.segments

	// Length compatibility: without a trailing catch-all the lengths
	// must be equal; a catch-all needs at least one extra segment, an
	// optional catch-all zero or more.
	fixed := len(specs)
	var trailing *Segment
	if fixed > 0 {
		switch specs[fixed-1].Kind {
		case SegmentCatchAll, SegmentOptionalCatchAll:
			trailing = &specs[fixed-1]
			fixed--
		}
	}

	switch {
	case trailing == nil:
		if len(path) != fixed {
			return nil, false
		}
	case trailing.Kind == SegmentCatchAll:
		if len(path) < fixed+1 {
			return nil, false
		}
	default: // optional catch-all
		if len(path) < fixed {
			return nil, false
		}
	}

	m := &Match{Pattern: p}
	for i := 0; i < fixed; i++ {
		switch specs[i].Kind {
		case SegmentStatic:
			if path[i] != specs[i].Name {
				return nil, false
			}
		case SegmentDynamic:
			if m.Params == nil {
				m.Params = make(map[string]string)
			}
			m.Params[specs[i].Name] = path[i]
		default:
			// Catch-alls are always trailing; Compile guarantees it.
			return nil, false
		}
	}

	if trailing != nil {
		rest := make([]string, len(path)-fixed)
		copy(rest, path[fixed:])
		m.Wildcards = map[string][]string{trailing.Name: rest}
	}

	return m, true
}

// splitPath splits a canonical path into segments, ignoring a single
// trailing separator.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
