package query

import "github.com/chazu/yulsp/yul"

// LiteralClass is the role a literal can play in a hover.
type LiteralClass int

const (
	// Selector is a 4-byte function selector: 0x followed by 8 hex digits.
	Selector LiteralClass = iota + 1
	// Address is a 20-byte account address: 0x followed by 40 hex digits.
	Address
)

func (c LiteralClass) String() string {
	switch c {
	case Selector:
		return "selector"
	case Address:
		return "address"
	}
	return "none"
}

const (
	selectorLen = 2 + 8
	addressLen  = 2 + 40
)

// Classify reports which class lit belongs to when the cursor is at
// offset. A literal that does not contain offset belongs to no class.
func Classify(lit *yul.Literal, offset int) (LiteralClass, bool) {
	if lit == nil || !contains(lit.Location, offset) {
		return 0, false
	}
	c := classOf(lit.Literal)
	return c, c != 0
}

func classOf(text string) LiteralClass {
	if !hasHexPrefix(text) || !isHex(text[2:]) {
		return 0
	}
	switch len(text) {
	case selectorLen:
		return Selector
	case addressLen:
		return Address
	}
	return 0
}

// LocateLiteral returns the literal of the given class containing offset,
// or nil when there is none.
func LocateLiteral(root *yul.Block, offset int, class LiteralClass) (*yul.Literal, error) {
	matches := locateLiterals(root, offset, func(lit *yul.Literal) bool {
		return classOf(lit.Literal) == class
	})
	return single(matches, offset)
}

// LocateAnyLiteral returns the selector or address literal containing
// offset together with its class.
func LocateAnyLiteral(root *yul.Block, offset int) (*yul.Literal, LiteralClass, error) {
	matches := locateLiterals(root, offset, func(lit *yul.Literal) bool {
		return classOf(lit.Literal) != 0
	})
	lit, err := single(matches, offset)
	if err != nil || lit == nil {
		return nil, 0, err
	}
	return lit, classOf(lit.Literal), nil
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
