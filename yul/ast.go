package yul

import "fmt"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Yul
// ---------------------------------------------------------------------------

// SourceLocation is a half-open byte range [Start, End).
type SourceLocation struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside the range.
func (l SourceLocation) Contains(offset int) bool {
	return l.Start <= offset && offset < l.End
}

// Overlaps reports whether the two ranges share at least one byte.
func (l SourceLocation) Overlaps(o SourceLocation) bool {
	return l.Start < o.End && o.Start < l.End
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("[%d, %d)", l.Start, l.End)
}

// Node is the interface implemented by all AST nodes. The set of node types
// is closed: only this package can add to it.
type Node interface {
	node() // marker method
}

// Statement is the interface for statement nodes.
type Statement interface {
	Node
	stmt() // marker method
}

// Expression is the interface for expression nodes.
type Expression interface {
	Node
	expr() // marker method
}

// ---------------------------------------------------------------------------
// Identifiers and their roles
// ---------------------------------------------------------------------------

// RoleKind tags the role an identifier occurrence plays.
type RoleKind int

const (
	// UnresolvedReference is an occurrence the resolver could not bind. It is
	// also the role of every identifier before resolution runs.
	UnresolvedReference RoleKind = iota
	// Declaration introduces a binding.
	Declaration
	// Reference uses a binding introduced by the Declaration with the same ID.
	Reference
	// BuiltinReference refers to a dialect built-in.
	BuiltinReference
)

var roleNames = [...]string{
	UnresolvedReference: "unresolved",
	Declaration:         "declaration",
	Reference:           "reference",
	BuiltinReference:    "builtin",
}

func (k RoleKind) String() string {
	if int(k) < len(roleNames) {
		return roleNames[k]
	}
	return fmt.Sprintf("RoleKind(%d)", int(k))
}

// Role is the resolution tag carried by an identifier. ID is only
// meaningful for Declaration and Reference.
type Role struct {
	Kind RoleKind
	ID   uint64
}

// DeclarationRole returns the role of an occurrence introducing binding id.
func DeclarationRole(id uint64) Role { return Role{Kind: Declaration, ID: id} }

// ReferenceRole returns the role of an occurrence using binding id.
func ReferenceRole(id uint64) Role { return Role{Kind: Reference, ID: id} }

// BuiltinRole is the role of a reference to a dialect built-in.
var BuiltinRole = Role{Kind: BuiltinReference}

// UnresolvedRole is the role of an unbound occurrence.
var UnresolvedRole = Role{Kind: UnresolvedReference}

func (r Role) String() string {
	switch r.Kind {
	case Declaration, Reference:
		return fmt.Sprintf("%s(%d)", r.Kind, r.ID)
	}
	return r.Kind.String()
}

// Identifier is a single occurrence of a name.
type Identifier struct {
	Name     string
	Role     Role
	Location *SourceLocation
	Type     string // optional type annotation (x:u256)
}

func (n *Identifier) node() {}
func (n *Identifier) expr() {}

func (n *Identifier) String() string { return n.Name }

// LiteralKind is the lexical category of a literal.
type LiteralKind int

const (
	NumberLiteral LiteralKind = iota
	StringLiteral
	HexStringLiteral
	BoolLiteral
)

// Literal is a constant as written in the source. Literal holds the raw
// text, quotes included for strings.
type Literal struct {
	Literal  string
	Kind     LiteralKind
	Type     string // optional type annotation (1:u32)
	Location *SourceLocation
}

func (n *Literal) node() {}
func (n *Literal) expr() {}

func (n *Literal) String() string { return n.Literal }

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// FunctionCall is a call of a user function or a built-in.
type FunctionCall struct {
	Function  *Identifier
	Arguments []Expression
	Location  *SourceLocation
}

func (n *FunctionCall) node() {}
func (n *FunctionCall) expr() {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Block is a braced list of statements. The root of every parsed document
// is a Block.
type Block struct {
	Statements []Statement
	Location   *SourceLocation
}

func (n *Block) node() {}
func (n *Block) stmt() {}

// FunctionDefinition is `function name(params) -> returns { body }`.
type FunctionDefinition struct {
	Name       *Identifier
	Parameters []*Identifier
	Returns    []*Identifier
	Body       *Block
	Location   *SourceLocation
}

func (n *FunctionDefinition) node() {}
func (n *FunctionDefinition) stmt() {}

// VariableDeclaration is `let a, b := value`. Value is nil when omitted.
type VariableDeclaration struct {
	Variables []*Identifier
	Value     Expression
	Location  *SourceLocation
}

func (n *VariableDeclaration) node() {}
func (n *VariableDeclaration) stmt() {}

// Assignment is `a, b := value`.
type Assignment struct {
	Variables []*Identifier
	Value     Expression
	Location  *SourceLocation
}

func (n *Assignment) node() {}
func (n *Assignment) stmt() {}

// If is `if condition { body }`.
type If struct {
	Condition Expression
	Body      *Block
	Location  *SourceLocation
}

func (n *If) node() {}
func (n *If) stmt() {}

// Switch is `switch expr case ... default ...`.
type Switch struct {
	Expression Expression
	Cases      []*Case
	Location   *SourceLocation
}

func (n *Switch) node() {}
func (n *Switch) stmt() {}

// Case is one arm of a switch. Value is nil for the default arm.
type Case struct {
	Value    *Literal
	Body     *Block
	Location *SourceLocation
}

func (n *Case) node() {}

// ForLoop is `for { pre } condition { post } { body }`.
type ForLoop struct {
	Pre       *Block
	Condition Expression
	Post      *Block
	Body      *Block
	Location  *SourceLocation
}

func (n *ForLoop) node() {}
func (n *ForLoop) stmt() {}

// Break is the `break` statement.
type Break struct{ Location *SourceLocation }

func (n *Break) node() {}
func (n *Break) stmt() {}

// Continue is the `continue` statement.
type Continue struct{ Location *SourceLocation }

func (n *Continue) node() {}
func (n *Continue) stmt() {}

// Leave is the `leave` statement.
type Leave struct{ Location *SourceLocation }

func (n *Leave) node() {}
func (n *Leave) stmt() {}

// ExpressionStatement is an expression evaluated for its effect.
type ExpressionStatement struct {
	Expression Expression
	Location   *SourceLocation
}

func (n *ExpressionStatement) node() {}
func (n *ExpressionStatement) stmt() {}

// loc allocates a location for a node.
func loc(start, end int) *SourceLocation {
	return &SourceLocation{Start: start, End: end}
}
