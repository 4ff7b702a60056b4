package router

import "sort"

// Table is an immutable collection of compiled patterns, sorted by
// descending specificity so resolution can use a first-match strategy.
// A Table is safe for concurrent use; it is never mutated after Build.
type Table struct {
	patterns []*Pattern
}

// Build constructs a Table from compiled patterns. It fails with a
// *DuplicateRouteError if two patterns are structurally identical
// (same segment kinds and static literals in the same order).
func Build(patterns []*Pattern) (*Table, error) {
	byShape := make(map[string]*Pattern, len(patterns))
	for _, p := range patterns {
		if _, exists := byShape[p.shape]; exists {
			return nil, &DuplicateRouteError{Pattern: p.id}
		}
		byShape[p.shape] = p
	}

	sorted := make([]*Pattern, len(patterns))
	copy(sorted, patterns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return comparePatterns(sorted[i], sorted[j]) < 0
	})

	return &Table{patterns: sorted}, nil
}

// BuildFromStrings parses bracket-syntax patterns and builds a Table.
func BuildFromStrings(patterns []string) (*Table, error) {
	compiled := make([]*Pattern, 0, len(patterns))
	for _, raw := range patterns {
		p, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, p)
	}
	return Build(compiled)
}

// Patterns returns the table's patterns in match order. The returned
// slice must not be modified.
func (t *Table) Patterns() []*Pattern { return t.patterns }

// Len returns the number of patterns in the table.
func (t *Table) Len() int { return len(t.patterns) }

// Lookup returns the pattern with the given canonical ID, if present.
func (t *Table) Lookup(id string) (*Pattern, bool) {
	for _, p := range t.patterns {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}
