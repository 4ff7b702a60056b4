package router

import "strings"

// Pattern is a compiled route pattern. Patterns are created once when
// the route table is built and are immutable afterwards.
type Pattern struct {
	segments []Segment
	id       string
	shape    string
}

// Compile turns an ordered segment list into a Pattern. It fails with
// a *MalformedPatternError if a catch-all or optional catch-all segment
// is not last, more than one such segment exists, or a parameter name
// is reused within the route. Compiling the same input twice yields
// patterns that sort identically.
func Compile(segments []Segment) (*Pattern, error) {
	p := &Pattern{segments: segments}

	seen := make(map[string]bool, len(segments))
	for i, seg := range segments {
		switch seg.Kind {
		case SegmentCatchAll, SegmentOptionalCatchAll:
			if i != len(segments)-1 {
				return nil, &MalformedPatternError{
					Pattern: patternString(segments),
					Reason:  seg.Kind.String() + " segment must be the final segment",
				}
			}
		}
		if seg.Kind != SegmentStatic {
			if seen[seg.Name] {
				return nil, &MalformedPatternError{
					Pattern: patternString(segments),
					Reason:  "duplicate segment name " + seg.Name,
				}
			}
			seen[seg.Name] = true
		}
	}

	p.id = patternString(segments)
	p.shape = shapeString(segments)
	return p, nil
}

// Parse compiles a pattern written in bracket syntax, e.g.
// "/products/[id]" or "/docs/[[...slug]]".
func Parse(pattern string) (*Pattern, error) {
	trimmed := strings.Trim(pattern, "/")

	var segments []Segment
	if trimmed != "" {
		for _, raw := range strings.Split(trimmed, "/") {
			seg, err := parseSegment(raw)
			if err != nil {
				return nil, &MalformedPatternError{Pattern: pattern, Reason: err.Error()}
			}
			segments = append(segments, seg)
		}
	}

	return Compile(segments)
}

// ID returns the canonical bracket-syntax form of the pattern, used as
// the route identity in cache keys, logs, and metrics labels.
func (p *Pattern) ID() string { return p.id }

// Segments returns the pattern's segments. The returned slice must not
// be modified.
func (p *Pattern) Segments() []Segment { return p.segments }

// String returns the canonical bracket-syntax form.
func (p *Pattern) String() string { return p.id }

// HasParams reports whether the pattern binds any parameters.
func (p *Pattern) HasParams() bool {
	for _, seg := range p.segments {
		if seg.Kind != SegmentStatic {
			return true
		}
	}
	return false
}

// patternString renders segments in canonical bracket syntax.
func patternString(segments []Segment) string {
	if len(segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteByte('/')
		sb.WriteString(seg.String())
	}
	return sb.String()
}

// shapeString renders the structural identity of a pattern: segment
// kinds and static literals, with parameter names erased. Two patterns
// with the same shape match exactly the same paths.
func shapeString(segments []Segment) string {
	if len(segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteByte('/')
		switch seg.Kind {
		case SegmentStatic:
			sb.WriteString(seg.Name)
		case SegmentDynamic:
			sb.WriteString("[]")
		case SegmentCatchAll:
			sb.WriteString("[...]")
		case SegmentOptionalCatchAll:
			sb.WriteString("[[...]]")
		}
	}
	return sb.String()
}

// comparePatterns orders patterns for the route table. Precedence is
// positional, left to right: at the first position where the patterns
// differ in segment kind, the more specific kind sorts first (static,
// then dynamic, then catch-all, then optional catch-all). Two routes
// can only compete for the same path through segments of different
// kinds, so this ordering alone decides every ambiguous resolution —
// /a/[x]/[y] outranks /[x]/b/c for the path /a/b/c because position 0
// is static, regardless of how many static segments follow.
//
// When all shared positions agree in kind, the shorter pattern sorts
// first (an exact-length route outranks one extended by an optional
// catch-all); the canonical string breaks the final tie for a stable
// total order.
func comparePatterns(a, b *Pattern) int {
	n := len(a.segments)
	if len(b.segments) < n {
		n = len(b.segments)
	}
	for i := 0; i < n; i++ {
		if a.segments[i].Kind != b.segments[i].Kind {
			if a.segments[i].Kind < b.segments[i].Kind {
				return -1
			}
			return 1
		}
	}

	if len(a.segments) != len(b.segments) {
		if len(a.segments) < len(b.segments) {
			return -1
		}
		return 1
	}

	return strings.Compare(a.id, b.id)
}
