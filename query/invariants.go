package query

import (
	"sort"

	"github.com/chazu/yulsp/yul"
)

// CheckInvariants verifies the resolver's contract on root: every
// Declaration(k) occurs once, every Reference(k) has its Declaration(k),
// and no two located tokens overlap. It returns the first violation found.
func CheckInvariants(root *yul.Block) error {
	decls := make(map[uint64][]*yul.Identifier)
	var refs []*yul.Identifier
	var spans []span

	yul.Inspect(root, func(n yul.Node) bool {
		switch n := n.(type) {
		case *yul.Identifier:
			switch n.Role.Kind {
			case yul.Declaration:
				decls[n.Role.ID] = append(decls[n.Role.ID], n)
			case yul.Reference:
				refs = append(refs, n)
			}
			if n.Location != nil {
				spans = append(spans, span{*n.Location, n.Name})
			}
		case *yul.Literal:
			if n.Location != nil {
				spans = append(spans, span{*n.Location, n.Literal})
			}
		}
		return true
	})

	ids := make([]uint64, 0, len(decls))
	for k := range decls {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, k := range ids {
		if ds := decls[k]; len(ds) > 1 {
			return &InvariantError{
				Kind:      KindDuplicateDeclaration,
				Name:      ds[0].Name,
				ID:        k,
				Offset:    -1,
				Locations: locations(ds),
			}
		}
	}

	for _, ref := range refs {
		if _, ok := decls[ref.Role.ID]; !ok {
			var locs []yul.SourceLocation
			if ref.Location != nil {
				locs = append(locs, *ref.Location)
			}
			return &InvariantError{
				Kind:      KindMissingDeclaration,
				Name:      ref.Name,
				ID:        ref.Role.ID,
				Offset:    -1,
				Locations: locs,
			}
		}
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].loc.Start < spans[j].loc.Start })
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.loc.Overlaps(cur.loc) {
			return &InvariantError{
				Kind:      KindOverlappingTokens,
				Name:      cur.text,
				Offset:    -1,
				Locations: []yul.SourceLocation{prev.loc, cur.loc},
			}
		}
	}
	return nil
}

type span struct {
	loc  yul.SourceLocation
	text string
}
