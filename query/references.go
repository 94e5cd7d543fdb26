package query

import "github.com/chazu/yulsp/yul"

// FindReferences returns every occurrence bound to the same declaration as
// the identifier at offset, in document order. The declaration itself is
// included when includeDeclaration is set. For a built-in, every use of the
// same built-in is returned.
func FindReferences(root *yul.Block, offset int, includeDeclaration bool) ([]*yul.Identifier, error) {
	id, err := LocateIdentifier(root, offset)
	if err != nil || id == nil {
		return nil, err
	}

	var match func(*yul.Identifier) bool
	switch id.Role.Kind {
	case yul.Declaration, yul.Reference:
		// make sure the binding is well formed before listing its uses
		if id.Role.Kind == yul.Reference {
			if _, err := declarationOf(root, id, offset); err != nil {
				return nil, err
			}
		}
		k := id.Role.ID
		match = func(other *yul.Identifier) bool {
			switch other.Role {
			case yul.ReferenceRole(k):
				return true
			case yul.DeclarationRole(k):
				return includeDeclaration
			}
			return false
		}
	case yul.BuiltinReference:
		match = func(other *yul.Identifier) bool {
			return other.Role.Kind == yul.BuiltinReference && other.Name == id.Name
		}
	default:
		return nil, nil
	}

	var out []*yul.Identifier
	yul.Inspect(root, func(n yul.Node) bool {
		if other, ok := n.(*yul.Identifier); ok && match(other) {
			out = append(out, other)
		}
		return true
	})
	return out, nil
}
