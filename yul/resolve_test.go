package yul

import (
	"strings"
	"testing"
)

// find returns the n-th (0-based) identifier named name.
func find(t *testing.T, root *Block, name string, n int) *Identifier {
	t.Helper()
	for _, id := range Identifiers(root) {
		if id.Name == name {
			if n == 0 {
				return id
			}
			n--
		}
	}
	t.Fatalf("identifier %q not found", name)
	return nil
}

func resolveSrc(t *testing.T, src string) (*Block, []Diagnostic) {
	t.Helper()
	root, diags, err := ParseAndResolve(src)
	if err != nil {
		t.Fatalf("ParseAndResolve(%q): %v", src, err)
	}
	return root, diags
}

func TestResolveFunctionParameter(t *testing.T) {
	root, diags := resolveSrc(t, "function f(x) -> y { y := x }")
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v", diags)
	}

	param := find(t, root, "x", 0)
	use := find(t, root, "x", 1)
	if param.Role.Kind != Declaration {
		t.Fatalf("param role = %v, want declaration", param.Role)
	}
	if use.Role != ReferenceRole(param.Role.ID) {
		t.Errorf("use role = %v, want reference(%d)", use.Role, param.Role.ID)
	}

	ret := find(t, root, "y", 0)
	assigned := find(t, root, "y", 1)
	if assigned.Role != ReferenceRole(ret.Role.ID) {
		t.Errorf("assigned role = %v, want reference(%d)", assigned.Role, ret.Role.ID)
	}
}

func TestResolveIDsStartAtOneAndAreUnique(t *testing.T) {
	root, _ := resolveSrc(t, "{ let a := 1 let b := 2 function f(p) -> q { } }")
	seen := map[uint64]string{}
	for _, id := range Identifiers(root) {
		if id.Role.Kind != Declaration {
			continue
		}
		if id.Role.ID == 0 {
			t.Errorf("%q has id 0", id.Name)
		}
		if other, ok := seen[id.Role.ID]; ok {
			t.Errorf("id %d used by %q and %q", id.Role.ID, other, id.Name)
		}
		seen[id.Role.ID] = id.Name
	}
	if len(seen) != 5 {
		t.Errorf("got %d declarations, want 5", len(seen))
	}
	if _, ok := seen[1]; !ok {
		t.Errorf("no declaration with id 1")
	}
}

func TestResolveBuiltins(t *testing.T) {
	root, diags := resolveSrc(t, "{ mstore(0, calldataload(4)) pop(verbatim_1i_1o(hex\"00\", 1)) }")
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v", diags)
	}
	for _, name := range []string{"mstore", "calldataload", "pop", "verbatim_1i_1o"} {
		if id := find(t, root, name, 0); id.Role != BuiltinRole {
			t.Errorf("%s role = %v, want builtin", name, id.Role)
		}
	}
}

func TestResolverAccumulatesDiagnostics(t *testing.T) {
	r := NewResolver(EVM)
	for _, src := range []string{"{ let a := b }", "{ pop(c) }"} {
		root, err := Parse(src)
		if err != nil {
			t.Fatal(err)
		}
		r.Resolve(root)
	}
	diags := r.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want two undeclared identifiers", diags)
	}
	if diags[1].Location != (SourceLocation{6, 7}) {
		t.Errorf("second diagnostic at %v, want [6, 7) for c", diags[1].Location)
	}
}

func TestResolveUndeclared(t *testing.T) {
	root, diags := resolveSrc(t, "{ let a := b }")
	if id := find(t, root, "b", 0); id.Role != UnresolvedRole {
		t.Errorf("b role = %v, want unresolved", id.Role)
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "undeclared") {
		t.Fatalf("diagnostics = %v, want one undeclared identifier", diags)
	}
	if diags[0].Location != (SourceLocation{11, 12}) {
		t.Errorf("diagnostic location = %v, want [11, 12)", diags[0].Location)
	}
}

func TestResolveFunctionHoisting(t *testing.T) {
	root, diags := resolveSrc(t, "{ pop(f()) { pop(f()) } function f() -> r { } }")
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v", diags)
	}
	decl := find(t, root, "f", 2)
	if decl.Role.Kind != Declaration {
		t.Fatalf("f declaration role = %v", decl.Role)
	}
	for i := 0; i < 2; i++ {
		if use := find(t, root, "f", i); use.Role != ReferenceRole(decl.Role.ID) {
			t.Errorf("use %d role = %v, want reference(%d)", i, use.Role, decl.Role.ID)
		}
	}
}

func TestResolveVariableNotVisibleBeforeDeclaration(t *testing.T) {
	root, diags := resolveSrc(t, "{ pop(x) let x := 1 }")
	if id := find(t, root, "x", 0); id.Role != UnresolvedRole {
		t.Errorf("x before declaration = %v, want unresolved", id.Role)
	}
	if len(diags) != 1 {
		t.Errorf("diagnostics = %v, want 1", diags)
	}
}

func TestResolveVariableNotVisibleInOwnInitializer(t *testing.T) {
	root, _ := resolveSrc(t, "{ let x := x }")
	if id := find(t, root, "x", 1); id.Role != UnresolvedRole {
		t.Errorf("x in initializer = %v, want unresolved", id.Role)
	}
}

func TestResolveBlockScopeEnds(t *testing.T) {
	root, _ := resolveSrc(t, "{ { let x := 1 } pop(x) }")
	if id := find(t, root, "x", 1); id.Role != UnresolvedRole {
		t.Errorf("x after block = %v, want unresolved", id.Role)
	}
}

func TestResolveFunctionBodyCannotSeeOuterVariables(t *testing.T) {
	src := "{ let v := 1 function g() -> r { } function f() -> r { r := add(v, g()) } }"
	root, diags := resolveSrc(t, src)

	if id := find(t, root, "v", 1); id.Role != UnresolvedRole {
		t.Errorf("outer variable in body = %v, want unresolved", id.Role)
	}
	g := find(t, root, "g", 0)
	if id := find(t, root, "g", 1); id.Role != ReferenceRole(g.Role.ID) {
		t.Errorf("outer function in body = %v, want reference(%d)", id.Role, g.Role.ID)
	}
	if len(diags) != 1 {
		t.Errorf("diagnostics = %v, want 1", diags)
	}
}

func TestResolveSameNameInSeparateFunctions(t *testing.T) {
	_, diags := resolveSrc(t, "{ let x := 1 function f(x) -> r { let y := x r := y } }")
	if len(diags) != 0 {
		t.Errorf("diagnostics = %v, want none", diags)
	}
}

func TestResolveForLoopInitScope(t *testing.T) {
	src := "{ for { let i := 0 } lt(i, 10) { i := add(i, 1) } { mstore(i, 0) } pop(i) }"
	root, diags := resolveSrc(t, src)

	decl := find(t, root, "i", 0)
	for n := 1; n <= 4; n++ {
		if id := find(t, root, "i", n); id.Role != ReferenceRole(decl.Role.ID) {
			t.Errorf("i[%d] = %v, want reference(%d)", n, id.Role, decl.Role.ID)
		}
	}
	if id := find(t, root, "i", 5); id.Role != UnresolvedRole {
		t.Errorf("i after loop = %v, want unresolved", id.Role)
	}
	if len(diags) != 1 {
		t.Errorf("diagnostics = %v, want 1", diags)
	}
}

func TestResolveRedeclaration(t *testing.T) {
	root, diags := resolveSrc(t, "{ let x := 1 { let x := 2 } }")
	first := find(t, root, "x", 0)
	second := find(t, root, "x", 1)
	if second.Role.Kind != Declaration || second.Role.ID == first.Role.ID {
		t.Errorf("redeclaration roles = %v, %v; want distinct declarations", first.Role, second.Role)
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "already declared") {
		t.Errorf("diagnostics = %v, want one redeclaration", diags)
	}
}

func TestResolveBuiltinRedeclaration(t *testing.T) {
	_, diags := resolveSrc(t, "{ let add := 1 }")
	if len(diags) != 1 {
		t.Errorf("diagnostics = %v, want 1", diags)
	}
}

func TestResolveWrongKind(t *testing.T) {
	_, diags := resolveSrc(t, "{ let x := 1 pop(x()) function f() { } pop(f) }")
	if len(diags) != 2 {
		t.Errorf("diagnostics = %v, want 2", diags)
	}
}

func TestDialectVerbatim(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"verbatim_0i_0o", true},
		{"verbatim_2i_1o", true},
		{"verbatim_99i_99o", true},
		{"verbatim_100i_0o", false},
		{"verbatim_01i_0o", false},
		{"verbatim_i_o", false},
		{"verbatim_1i_1", false},
		{"verbatim", false},
	}
	for _, tc := range tests {
		if got := EVM.IsBuiltin(tc.name); got != tc.want {
			t.Errorf("IsBuiltin(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNilDialect(t *testing.T) {
	root, err := Parse("{ mstore(0, 0) }")
	if err != nil {
		t.Fatal(err)
	}
	diags := Resolve(root, nil)
	if id := find(t, root, "mstore", 0); id.Role != UnresolvedRole {
		t.Errorf("mstore role = %v, want unresolved", id.Role)
	}
	if len(diags) != 1 {
		t.Errorf("diagnostics = %v, want 1", diags)
	}
}
