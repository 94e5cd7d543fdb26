package yul_test

import (
	"testing"

	"github.com/chazu/yulsp/query"
	"github.com/chazu/yulsp/yul"
)

var fuzzSeeds = []string{
	"",
	"{ }",
	"function f(x) -> y { y := x }",
	"{ let a, b := f() function f() -> x, y { x := 1 y := 0x70a08231 } }",
	"{ for { let i := 0 } lt(i, 10) { i := add(i, 1) } { mstore(i, 0) } }",
	"{ switch calldataload(0) case 0 { leave } case \"a\" { } default { revert(0, 0) } }",
	"{ let x := 1 { let x := 2 } pop(y) }",
	"{ pop(verbatim_2i_1o(hex\"6000\", 1, 2)) }",
	"/* c */ { // line\n let s := \"\\x41\\n\" }",
	"{ let a:u256 := 1:u256 }",
	"{ function f() { function g() { } g() } f() }",
}

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics and always terminates.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		toks := yul.Tokenize(src)
		if len(toks) == 0 {
			t.Fatal("no tokens")
		}
		prev := 0
		for _, tok := range toks {
			if tok.Pos.Offset < prev || tok.End < tok.Pos.Offset || tok.End > len(src) {
				t.Fatalf("token %v has bad range [%d, %d)", tok, tok.Pos.Offset, tok.End)
			}
			prev = tok.End
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzResolve: any program that parses resolves to a tree satisfying the
// declaration, binding and non-overlap invariants.
// ---------------------------------------------------------------------------

func FuzzResolve(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		root, _, err := yul.ParseAndResolve(src)
		if err != nil {
			return
		}
		if err := query.CheckInvariants(root); err != nil {
			t.Fatalf("CheckInvariants(%q): %v", src, err)
		}

		for _, id := range yul.Identifiers(root) {
			got, err := query.LocateIdentifier(root, id.Location.Start)
			if err != nil {
				t.Fatalf("LocateIdentifier(%d): %v", id.Location.Start, err)
			}
			if got != id {
				t.Fatalf("LocateIdentifier(%d) = %v, want %v", id.Location.Start, got, id)
			}
			if id.Role.Kind != yul.Reference {
				continue
			}
			decl, err := query.FindDefinition(root, id.Location.Start)
			if err != nil {
				t.Fatalf("FindDefinition(%d): %v", id.Location.Start, err)
			}
			if decl == nil || decl.Name != id.Name || decl.Role != yul.DeclarationRole(id.Role.ID) {
				t.Fatalf("FindDefinition(%q at %d) = %v", id.Name, id.Location.Start, decl)
			}
		}
	})
}
