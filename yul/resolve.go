package yul

import "fmt"

// ---------------------------------------------------------------------------
// Resolver: assigns an identifier role to every identifier
// ---------------------------------------------------------------------------

// Severity is the severity of a resolver diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a problem found while resolving names.
type Diagnostic struct {
	Location SourceLocation
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
}

// binding is a name introduced by a declaration.
type binding struct {
	id       uint64
	function bool
}

// scope is one lexical level. A boundary scope holds a function's
// parameters and return variables; lookups that leave it only see
// functions.
type scope struct {
	parent   *scope
	bindings map[string]binding
	boundary bool
}

func newScope(parent *scope, boundary bool) *scope {
	return &scope{parent: parent, bindings: make(map[string]binding), boundary: boundary}
}

// lookup finds the binding visible for name from s.
func (s *scope) lookup(name string) (binding, bool) {
	crossed := false
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.bindings[name]; ok && (!crossed || b.function) {
			return b, true
		}
		if cur.boundary {
			crossed = true
		}
	}
	return binding{}, false
}

// Resolver walks a parsed tree and tags each identifier with its role.
type Resolver struct {
	dialect     *Dialect
	nextID      uint64
	diagnostics []Diagnostic
}

// NewResolver creates a resolver for the given dialect. A nil dialect has
// no built-ins.
func NewResolver(dialect *Dialect) *Resolver {
	return &Resolver{dialect: dialect, nextID: 1}
}

// Resolve assigns roles to every identifier under root in place and returns
// the diagnostics found.
func Resolve(root *Block, dialect *Dialect) []Diagnostic {
	r := NewResolver(dialect)
	r.Resolve(root)
	return r.Diagnostics()
}

// ParseAndResolve parses src and resolves it against the EVM dialect.
func ParseAndResolve(src string) (*Block, []Diagnostic, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	return root, Resolve(root, EVM), nil
}

// Resolve resolves root as the outermost block.
func (r *Resolver) Resolve(root *Block) {
	if root == nil {
		return
	}
	r.resolveBlock(root, nil)
}

// Diagnostics returns the diagnostics accumulated so far.
func (r *Resolver) Diagnostics() []Diagnostic {
	return r.diagnostics
}

func (r *Resolver) errorAt(id *Identifier, format string, args ...interface{}) {
	var l SourceLocation
	if id.Location != nil {
		l = *id.Location
	}
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Location: l,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	})
}

// declare introduces a binding for id in s. A name that is already visible
// is reported but still gets a fresh id.
func (r *Resolver) declare(s *scope, id *Identifier, function bool) {
	if id == nil {
		return
	}
	if _, ok := s.lookup(id.Name); ok {
		r.errorAt(id, "%q is already declared", id.Name)
	} else if r.dialect.IsBuiltin(id.Name) {
		r.errorAt(id, "cannot redeclare built-in %q", id.Name)
	}

	b := binding{id: r.nextID, function: function}
	r.nextID++
	id.Role = DeclarationRole(b.id)
	s.bindings[id.Name] = b
}

// reference resolves a use of id. wantFunction selects the diagnostic for
// a binding of the wrong kind.
func (r *Resolver) reference(s *scope, id *Identifier, wantFunction bool) {
	if id == nil {
		return
	}
	if b, ok := s.lookup(id.Name); ok {
		id.Role = ReferenceRole(b.id)
		switch {
		case wantFunction && !b.function:
			r.errorAt(id, "%q is a variable, not a function", id.Name)
		case !wantFunction && b.function:
			r.errorAt(id, "function %q used as a value", id.Name)
		}
		return
	}
	if r.dialect.IsBuiltin(id.Name) {
		id.Role = BuiltinRole
		if !wantFunction {
			r.errorAt(id, "built-in %q used as a value", id.Name)
		}
		return
	}
	id.Role = UnresolvedRole
	r.errorAt(id, "undeclared identifier %q", id.Name)
}

// resolveBlock opens a scope for b, hoists its functions and resolves its
// statements in order.
func (r *Resolver) resolveBlock(b *Block, parent *scope) {
	s := newScope(parent, false)
	r.resolveStatements(b.Statements, s)
}

func (r *Resolver) resolveStatements(stmts []Statement, s *scope) {
	for _, stmt := range stmts {
		if fd, ok := stmt.(*FunctionDefinition); ok {
			r.declare(s, fd.Name, true)
		}
	}
	for _, stmt := range stmts {
		r.resolveStatement(stmt, s)
	}
}

func (r *Resolver) resolveStatement(stmt Statement, s *scope) {
	switch n := stmt.(type) {
	case *Block:
		r.resolveBlock(n, s)

	case *FunctionDefinition:
		fs := newScope(s, true)
		for _, p := range n.Parameters {
			r.declare(fs, p, false)
		}
		for _, ret := range n.Returns {
			r.declare(fs, ret, false)
		}
		if n.Body != nil {
			r.resolveBlock(n.Body, fs)
		}

	case *VariableDeclaration:
		// the initializer cannot see the variables being declared
		r.resolveExpression(n.Value, s)
		for _, v := range n.Variables {
			r.declare(s, v, false)
		}

	case *Assignment:
		r.resolveExpression(n.Value, s)
		for _, v := range n.Variables {
			r.reference(s, v, false)
		}

	case *If:
		r.resolveExpression(n.Condition, s)
		if n.Body != nil {
			r.resolveBlock(n.Body, s)
		}

	case *Switch:
		r.resolveExpression(n.Expression, s)
		for _, c := range n.Cases {
			if c.Body != nil {
				r.resolveBlock(c.Body, s)
			}
		}

	case *ForLoop:
		// the init block's scope covers condition, post and body
		init := newScope(s, false)
		if n.Pre != nil {
			r.resolveStatements(n.Pre.Statements, init)
		}
		r.resolveExpression(n.Condition, init)
		if n.Post != nil {
			r.resolveBlock(n.Post, init)
		}
		if n.Body != nil {
			r.resolveBlock(n.Body, init)
		}

	case *ExpressionStatement:
		r.resolveExpression(n.Expression, s)

	case *Break, *Continue, *Leave:
	}
}

func (r *Resolver) resolveExpression(expr Expression, s *scope) {
	switch n := expr.(type) {
	case *FunctionCall:
		r.reference(s, n.Function, true)
		for _, arg := range n.Arguments {
			r.resolveExpression(arg, s)
		}
	case *Identifier:
		r.reference(s, n, false)
	case *Literal:
	}
}
