package query

import "github.com/chazu/yulsp/yul"

// FindDefinition returns the declaration bound to the identifier at offset.
// A declaration is returned unchanged. Built-in and unresolved references,
// and offsets outside every identifier, yield nil with no error.
func FindDefinition(root *yul.Block, offset int) (*yul.Identifier, error) {
	id, err := LocateIdentifier(root, offset)
	if err != nil || id == nil {
		return nil, err
	}

	switch id.Role.Kind {
	case yul.Declaration:
		return id, nil
	case yul.Reference:
		return declarationOf(root, id, offset)
	default:
		return nil, nil
	}
}

// declarationOf finds the unique Declaration(k) for the Reference(k) ref.
func declarationOf(root *yul.Block, ref *yul.Identifier, offset int) (*yul.Identifier, error) {
	want := yul.DeclarationRole(ref.Role.ID)
	var decls []*yul.Identifier
	yul.Inspect(root, func(n yul.Node) bool {
		if id, ok := n.(*yul.Identifier); ok && id.Role == want {
			decls = append(decls, id)
		}
		return true
	})

	switch len(decls) {
	case 1:
		return decls[0], nil
	case 0:
		return nil, &InvariantError{
			Kind:   KindMissingDeclaration,
			Name:   ref.Name,
			ID:     ref.Role.ID,
			Offset: offset,
		}
	}
	return nil, &InvariantError{
		Kind:      KindDuplicateDeclaration,
		Name:      ref.Name,
		ID:        ref.Role.ID,
		Offset:    offset,
		Locations: locations(decls),
	}
}
