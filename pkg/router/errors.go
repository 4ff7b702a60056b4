package router

import "fmt"

// MalformedPatternError reports a route definition that violates the
// structural invariants: a catch-all that is not the final segment,
// more than one catch-all, a reused segment name, or invalid bracket
// syntax. Fatal at build time.
type MalformedPatternError struct {
	// Pattern is the offending pattern in bracket syntax.
	Pattern string

	// Reason is a human-readable description of the violation.
	Reason string
}

func (e *MalformedPatternError) Error() string {
	return fmt.Sprintf("router: malformed pattern %s: %s", e.Pattern, e.Reason)
}

// DuplicateRouteError reports two structurally identical patterns in
// one route table build. Fatal at build time.
type DuplicateRouteError struct {
	// Pattern is the duplicated pattern in bracket syntax.
	Pattern string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("router: duplicate route %s", e.Pattern)
}
