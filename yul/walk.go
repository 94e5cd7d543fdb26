package yul

// Inspect traverses the tree rooted at node in depth-first, document order.
// It calls f for each node; if f returns false, the children of that node
// are skipped.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}

	switch n := node.(type) {
	case *Block:
		for _, s := range n.Statements {
			Inspect(s, f)
		}

	case *FunctionDefinition:
		if n.Name != nil {
			Inspect(n.Name, f)
		}
		inspectIdentifiers(n.Parameters, f)
		inspectIdentifiers(n.Returns, f)
		if n.Body != nil {
			Inspect(n.Body, f)
		}

	case *VariableDeclaration:
		inspectIdentifiers(n.Variables, f)
		Inspect(n.Value, f)

	case *Assignment:
		inspectIdentifiers(n.Variables, f)
		Inspect(n.Value, f)

	case *If:
		Inspect(n.Condition, f)
		if n.Body != nil {
			Inspect(n.Body, f)
		}

	case *Switch:
		Inspect(n.Expression, f)
		for _, c := range n.Cases {
			Inspect(c, f)
		}

	case *Case:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
		if n.Body != nil {
			Inspect(n.Body, f)
		}

	case *ForLoop:
		if n.Pre != nil {
			Inspect(n.Pre, f)
		}
		Inspect(n.Condition, f)
		if n.Post != nil {
			Inspect(n.Post, f)
		}
		if n.Body != nil {
			Inspect(n.Body, f)
		}

	case *ExpressionStatement:
		Inspect(n.Expression, f)

	case *FunctionCall:
		if n.Function != nil {
			Inspect(n.Function, f)
		}
		for _, arg := range n.Arguments {
			Inspect(arg, f)
		}

	case *Identifier, *Literal, *Break, *Continue, *Leave:
		// leaves
	}
}

func inspectIdentifiers(ids []*Identifier, f func(Node) bool) {
	for _, id := range ids {
		if id != nil {
			Inspect(id, f)
		}
	}
}

// Identifiers returns every identifier under node in document order.
func Identifiers(node Node) []*Identifier {
	var out []*Identifier
	Inspect(node, func(n Node) bool {
		if id, ok := n.(*Identifier); ok {
			out = append(out, id)
		}
		return true
	})
	return out
}

// Literals returns every literal under node in document order.
func Literals(node Node) []*Literal {
	var out []*Literal
	Inspect(node, func(n Node) bool {
		if lit, ok := n.(*Literal); ok {
			out = append(out, lit)
		}
		return true
	})
	return out
}
