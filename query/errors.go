// Package query answers position-indexed questions about a resolved Yul
// tree: which token is under the cursor, which declaration a reference is
// bound to, and where a binding is used.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/yulsp/yul"
)

// ErrInvariantViolation is wrapped by every *InvariantError.
var ErrInvariantViolation = errors.New("ast invariant violation")

// InvariantKind names the tree invariant that was broken.
type InvariantKind string

const (
	KindOverlappingTokens    InvariantKind = "overlapping tokens"
	KindMissingDeclaration   InvariantKind = "missing declaration"
	KindDuplicateDeclaration InvariantKind = "duplicate declaration"
)

// InvariantError reports a tree that violates the resolver's contract. It
// always indicates a defect upstream of the query, never bad user input.
type InvariantError struct {
	Kind      InvariantKind
	Name      string // identifier name, when one is involved
	ID        uint64 // binding id, for declaration errors
	Offset    int    // query offset, or -1 when not a point query
	Locations []yul.SourceLocation
}

func (e *InvariantError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Name != "" {
		fmt.Fprintf(&b, " for %q", e.Name)
	}
	if e.ID != 0 {
		fmt.Fprintf(&b, " (id %d)", e.ID)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if len(e.Locations) > 0 {
		locs := make([]string, len(e.Locations))
		for i, l := range e.Locations {
			locs[i] = l.String()
		}
		fmt.Fprintf(&b, ": %s", strings.Join(locs, ", "))
	}
	return b.String()
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

func locations[T interface{ *yul.Identifier | *yul.Literal }](nodes []T) []yul.SourceLocation {
	out := make([]yul.SourceLocation, 0, len(nodes))
	for _, n := range nodes {
		if l := nodeLocation(n); l != nil {
			out = append(out, *l)
		}
	}
	return out
}

func nodeLocation(n any) *yul.SourceLocation {
	switch n := n.(type) {
	case *yul.Identifier:
		return n.Location
	case *yul.Literal:
		return n.Location
	}
	return nil
}
