package router

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		pattern string
		want    []Segment
	}{
		{"/", nil},
		{"/about", []Segment{{Name: "about", Kind: SegmentStatic}}},
		{"/products/[id]", []Segment{
			{Name: "products", Kind: SegmentStatic},
			{Name: "id", Kind: SegmentDynamic},
		}},
		{"/blog/[...slug]", []Segment{
			{Name: "blog", Kind: SegmentStatic},
			{Name: "slug", Kind: SegmentCatchAll},
		}},
		{"/docs/[[...slug]]", []Segment{
			{Name: "docs", Kind: SegmentStatic},
			{Name: "slug", Kind: SegmentOptionalCatchAll},
		}},
		{"/users/[id]/posts/[post]", []Segment{
			{Name: "users", Kind: SegmentStatic},
			{Name: "id", Kind: SegmentDynamic},
			{Name: "posts", Kind: SegmentStatic},
			{Name: "post", Kind: SegmentDynamic},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Parse(tt.pattern)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.pattern, err)
			}
			got := p.Segments()
			if len(got) != len(tt.want) {
				t.Fatalf("len(segments) = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"catch-all not last", "/blog/[...slug]/comments"},
		{"optional catch-all not last", "/docs/[[...slug]]/edit"},
		{"two catch-alls", "/a/[...x]/[...y]"},
		{"duplicate param name", "/users/[id]/posts/[id]"},
		{"duplicate across kinds", "/users/[id]/[...id]"},
		{"empty dynamic name", "/users/[]"},
		{"empty catch-all name", "/blog/[...]"},
		{"unbalanced bracket", "/users/[id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.pattern)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.pattern)
			}
			var malformed *MalformedPatternError
			if !errors.As(err, &malformed) {
				t.Errorf("error = %T, want *MalformedPatternError", err)
			}
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	segs := []Segment{
		{Name: "blog", Kind: SegmentStatic},
		{Name: "slug", Kind: SegmentCatchAll},
	}
	a, err := Compile(segs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile(segs)
	if err != nil {
		t.Fatal(err)
	}
	if comparePatterns(a, b) != 0 {
		t.Errorf("comparePatterns(a, b) = %d, want 0", comparePatterns(a, b))
	}
	if a.ID() != b.ID() {
		t.Errorf("ID differs: %q vs %q", a.ID(), b.ID())
	}
}

func TestSpecificityOrdering(t *testing.T) {
	// Each pair: the first pattern must outrank the second.
	tests := []struct {
		higher string
		lower  string
	}{
		{"/products/featured", "/products/[id]"},
		{"/products/[id]", "/products/[...rest]"},
		{"/products/[...rest]", "/products/[[...rest]]"},
		{"/a/b/[id]", "/a/[id]"},
		{"/blog/[id]", "/blog/[...slug]"},
		// Precedence is decided at the first differing position, not
		// by counting static segments across the whole pattern.
		{"/a/[x]", "/[x]/a"},
		{"/a/[x]/[y]", "/[x]/b/c"},
		{"/a/b/[...c]", "/a/[x]/[y]"},
		// An exact-length route outranks its optional extension.
		{"/docs", "/docs/[[...slug]]"},
	}

	for _, tt := range tests {
		t.Run(tt.higher+" > "+tt.lower, func(t *testing.T) {
			hi, err := Parse(tt.higher)
			if err != nil {
				t.Fatal(err)
			}
			lo, err := Parse(tt.lower)
			if err != nil {
				t.Fatal(err)
			}
			if comparePatterns(hi, lo) >= 0 {
				t.Errorf("%s does not outrank %s", tt.higher, tt.lower)
			}
			if comparePatterns(lo, hi) <= 0 {
				t.Errorf("ordering of %s and %s is not antisymmetric", tt.higher, tt.lower)
			}
		})
	}
}

func TestPatternID(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/", "/"},
		{"/about/", "/about"},
		{"products/[id]", "/products/[id]"},
		{"/docs/[[...slug]]", "/docs/[[...slug]]"},
	}

	for _, tt := range tests {
		p, err := Parse(tt.pattern)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.pattern, err)
		}
		if p.ID() != tt.want {
			t.Errorf("ID(%q) = %q, want %q", tt.pattern, p.ID(), tt.want)
		}
	}
}
