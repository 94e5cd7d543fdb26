package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/yulsp/lookup"
	"github.com/chazu/yulsp/query"
	"github.com/chazu/yulsp/yul"
)

// addressTooltip is shown for address literals. Contract names are only
// resolved through the contract command and MCP tool.
const addressTooltip = "**Address** (contract name lookup is not run on hover)"

var frontLog = commonlog.GetLogger("yulsp.query")

// Hover is the tooltip for a literal under the cursor.
type Hover struct {
	Markdown string
	Class    query.LiteralClass
	Literal  string
	Location yul.SourceLocation
}

// analyze parses and resolves src. The tree is private to the caller.
func analyze(src string) (*yul.Block, error) {
	root, _, err := yul.ParseAndResolve(src)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// Identify returns the identifier whose range contains offset, or nil.
func Identify(src string, offset int) (*yul.Identifier, error) {
	root, err := analyze(src)
	if err != nil {
		return nil, err
	}
	return query.LocateIdentifier(root, offset)
}

// Definition returns the declaration bound to the identifier at offset, or
// nil when there is none.
func Definition(src string, offset int) (*yul.Identifier, error) {
	root, err := analyze(src)
	if err != nil {
		return nil, err
	}
	return query.FindDefinition(root, offset)
}

// References returns every occurrence of the binding at offset.
func References(src string, offset int, includeDeclaration bool) ([]*yul.Identifier, error) {
	root, err := analyze(src)
	if err != nil {
		return nil, err
	}
	return query.FindReferences(root, offset, includeDeclaration)
}

// HoverAt builds the tooltip for the literal at offset. Selectors are
// looked up through svc; a lookup that finds nothing yields no tooltip.
func HoverAt(ctx context.Context, svc lookup.Service, src string, offset int) (*Hover, error) {
	root, err := analyze(src)
	if err != nil {
		return nil, err
	}
	lit, class, err := query.LocateAnyLiteral(root, offset)
	if err != nil || lit == nil {
		return nil, err
	}

	h := &Hover{Class: class, Literal: lit.Literal, Location: *lit.Location}
	switch class {
	case query.Selector:
		frontLog.Debug("looking up selector", "selector", lit.Literal)
		sig, err := svc.FunctionSignature(ctx, lit.Literal)
		if errors.Is(err, lookup.ErrNotFound) {
			frontLog.Info("no signature found", "selector", lit.Literal)
			return nil, nil
		}
		if err != nil {
			frontLog.Warning("signature lookup failed", "selector", lit.Literal, "error", err)
			return nil, err
		}
		h.Markdown = fmt.Sprintf("**Signature**: %s", sig)
	case query.Address:
		h.Markdown = addressTooltip
	}
	return h, nil
}

// Check parses, resolves and verifies the tree invariants of src. The
// returned diagnostics are the resolver's; err is a parse error or an
// invariant violation.
func Check(src string) ([]yul.Diagnostic, error) {
	root, diags, err := yul.ParseAndResolve(src)
	if err != nil {
		return nil, err
	}
	if err := query.CheckInvariants(root); err != nil {
		return diags, err
	}
	return diags, nil
}
