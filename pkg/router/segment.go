package router

import (
	"fmt"
	"strings"
)

// SegmentKind identifies how a pattern segment matches path segments.
// The matcher branches exhaustively on this closed set.
type SegmentKind int

const (
	// SegmentStatic matches exactly one path segment by literal value.
	SegmentStatic SegmentKind = iota

	// SegmentDynamic matches exactly one path segment and binds it.
	SegmentDynamic

	// SegmentCatchAll matches one or more remaining path segments.
	SegmentCatchAll

	// SegmentOptionalCatchAll matches zero or more remaining path segments.
	SegmentOptionalCatchAll
)

// String returns the kind name for error messages and logs.
func (k SegmentKind) String() string {
	switch k {
	case SegmentStatic:
		return "static"
	case SegmentDynamic:
		return "dynamic"
	case SegmentCatchAll:
		return "catch-all"
	case SegmentOptionalCatchAll:
		return "optional-catch-all"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// Segment is one segment of a route definition. For static segments
// Name is the literal path segment; otherwise it is the parameter name.
type Segment struct {
	Name string
	Kind SegmentKind
}

// String renders the segment in bracket syntax.
func (s Segment) String() string {
	switch s.Kind {
	case SegmentDynamic:
		return "[" + s.Name + "]"
	case SegmentCatchAll:
		return "[..." + s.Name + "]"
	case SegmentOptionalCatchAll:
		return "[[..." + s.Name + "]]"
	default:
		return s.Name
	}
}

// parseSegment parses one bracket-syntax segment.
func parseSegment(raw string) (Segment, error) {
	switch {
	case strings.HasPrefix(raw, "[[...") && strings.HasSuffix(raw, "]]"):
		name := raw[5 : len(raw)-2]
		if name == "" {
			return Segment{}, fmt.Errorf("empty optional catch-all name in %q", raw)
		}
		return Segment{Name: name, Kind: SegmentOptionalCatchAll}, nil
	case strings.HasPrefix(raw, "[...") && strings.HasSuffix(raw, "]"):
		name := raw[4 : len(raw)-1]
		if name == "" {
			return Segment{}, fmt.Errorf("empty catch-all name in %q", raw)
		}
		return Segment{Name: name, Kind: SegmentCatchAll}, nil
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		name := raw[1 : len(raw)-1]
		if name == "" || strings.ContainsAny(name, "[]") {
			return Segment{}, fmt.Errorf("malformed dynamic segment %q", raw)
		}
		return Segment{Name: name, Kind: SegmentDynamic}, nil
	case strings.ContainsAny(raw, "[]"):
		return Segment{}, fmt.Errorf("malformed segment %q", raw)
	default:
		return Segment{Name: raw, Kind: SegmentStatic}, nil
	}
}
