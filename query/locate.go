package query

import "github.com/chazu/yulsp/yul"

// LocateIdentifier returns the identifier whose range contains offset, or
// nil when there is none. Two identifiers containing the same offset is an
// *InvariantError.
func LocateIdentifier(root *yul.Block, offset int) (*yul.Identifier, error) {
	var matches []*yul.Identifier
	yul.Inspect(root, func(n yul.Node) bool {
		if id, ok := n.(*yul.Identifier); ok && contains(id.Location, offset) {
			matches = append(matches, id)
		}
		return true
	})
	return single(matches, offset)
}

// locateLiterals collects every literal containing offset that satisfies
// keep.
func locateLiterals(root *yul.Block, offset int, keep func(*yul.Literal) bool) []*yul.Literal {
	var matches []*yul.Literal
	yul.Inspect(root, func(n yul.Node) bool {
		if lit, ok := n.(*yul.Literal); ok && contains(lit.Location, offset) && keep(lit) {
			matches = append(matches, lit)
		}
		return true
	})
	return matches
}

func contains(l *yul.SourceLocation, offset int) bool {
	return l != nil && l.Contains(offset)
}

// single returns the only element of matches, nil for none, and an
// overlapping-tokens error for more.
func single[T interface{ *yul.Identifier | *yul.Literal }](matches []T, offset int) (T, error) {
	var none T
	switch len(matches) {
	case 0:
		return none, nil
	case 1:
		return matches[0], nil
	}
	return none, &InvariantError{
		Kind:      KindOverlappingTokens,
		Offset:    offset,
		Locations: locations(matches),
	}
}
