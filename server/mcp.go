package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chazu/yulsp/lookup"
	"github.com/chazu/yulsp/yul"
)

type identifierView struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	ID    uint64 `json:"id,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func viewOf(id *yul.Identifier) *identifierView {
	if id == nil {
		return nil
	}
	v := &identifierView{Name: id.Name, Role: id.Role.Kind.String(), ID: id.Role.ID}
	if id.Location != nil {
		v.Start, v.End = id.Location.Start, id.Location.End
	}
	return v
}

type hoverView struct {
	Markdown string `json:"markdown"`
	Class    string `json:"class"`
	Literal  string `json:"literal"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

type lookupView struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// mcpTools exposes the queries and lookups as MCP tools.
type mcpTools struct {
	lookup lookup.Service
}

// NewMCP returns an MCP server exposing the Yul queries and signature
// lookups as tools. A nil svc disables lookups.
func NewMCP(svc lookup.Service, version string) *mcpserver.MCPServer {
	if svc == nil {
		svc = lookup.Disabled{}
	}
	t := &mcpTools{lookup: svc}

	s := mcpserver.NewMCPServer(
		lspName,
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	sourceArgs := []mcp.ToolOption{
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Yul source text"),
		),
		mcp.WithNumber("offset",
			mcp.Required(),
			mcp.Min(0),
			mcp.Description("Byte offset into source"),
		),
	}

	s.AddTool(mcp.NewTool("yul_identify", append([]mcp.ToolOption{
		mcp.WithDescription("Return the identifier at a byte offset and its resolved role (declaration, reference, builtin, unresolved)."),
	}, sourceArgs...)...), t.identify)

	s.AddTool(mcp.NewTool("yul_definition", append([]mcp.ToolOption{
		mcp.WithDescription("Return the declaration bound to the identifier at a byte offset."),
	}, sourceArgs...)...), t.definition)

	s.AddTool(mcp.NewTool("yul_references", append([]mcp.ToolOption{
		mcp.WithDescription("Return every occurrence of the binding at a byte offset, declaration included."),
	}, sourceArgs...)...), t.references)

	s.AddTool(mcp.NewTool("yul_hover", append([]mcp.ToolOption{
		mcp.WithDescription("Return the hover text for a selector or address literal at a byte offset."),
	}, sourceArgs...)...), t.hover)

	s.AddTool(mcp.NewTool("selector_signature",
		mcp.WithDescription("Look up the function signature for a 4-byte selector such as 0x70a08231."),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("0x-prefixed 4-byte selector"),
		),
	), t.signature)

	s.AddTool(mcp.NewTool("contract_name",
		mcp.WithDescription("Look up the contract name for a 20-byte address."),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("0x-prefixed contract address"),
		),
	), t.contract)

	return s
}

// ServeMCP runs the MCP server on stdin/stdout.
func ServeMCP(s *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(s)
}

func sourceAndOffset(req mcp.CallToolRequest) (string, int, *mcp.CallToolResult) {
	src, err := req.RequireString("source")
	if err != nil {
		return "", 0, mcp.NewToolResultError(err.Error())
	}
	offset, err := req.RequireInt("offset")
	if err != nil {
		return "", 0, mcp.NewToolResultError(err.Error())
	}
	if offset < 0 || offset > len(src) {
		return "", 0, mcp.NewToolResultErrorf("offset %d outside source of length %d", offset, len(src))
	}
	return src, offset, nil
}

func (t *mcpTools) identify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, offset, bad := sourceAndOffset(req)
	if bad != nil {
		return bad, nil
	}
	id, err := Identify(src, offset)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("identify failed", err), nil
	}
	return mcp.NewToolResultJSON(viewOf(id))
}

func (t *mcpTools) definition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, offset, bad := sourceAndOffset(req)
	if bad != nil {
		return bad, nil
	}
	decl, err := Definition(src, offset)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("definition failed", err), nil
	}
	return mcp.NewToolResultJSON(viewOf(decl))
}

func (t *mcpTools) references(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, offset, bad := sourceAndOffset(req)
	if bad != nil {
		return bad, nil
	}
	refs, err := References(src, offset, true)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("references failed", err), nil
	}
	views := make([]*identifierView, len(refs))
	for i, id := range refs {
		views[i] = viewOf(id)
	}
	return mcp.NewToolResultJSON(views)
}

func (t *mcpTools) hover(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, offset, bad := sourceAndOffset(req)
	if bad != nil {
		return bad, nil
	}
	h, err := HoverAt(ctx, t.lookup, src, offset)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("hover failed", err), nil
	}
	if h == nil {
		return mcp.NewToolResultJSON[*hoverView](nil)
	}
	return mcp.NewToolResultJSON(&hoverView{
		Markdown: h.Markdown,
		Class:    h.Class.String(),
		Literal:  h.Literal,
		Start:    h.Location.Start,
		End:      h.Location.End,
	})
}

func (t *mcpTools) signature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := req.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return lookupResult(selector)(t.lookup.FunctionSignature(ctx, selector))
}

func (t *mcpTools) contract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return lookupResult(address)(t.lookup.ContractName(ctx, address))
}

// lookupResult turns a lookup outcome into a tool result. Not found is a
// successful result with found=false.
func lookupResult(key string) func(string, error) (*mcp.CallToolResult, error) {
	return func(value string, err error) (*mcp.CallToolResult, error) {
		switch {
		case errors.Is(err, lookup.ErrNotFound):
			return mcp.NewToolResultJSON(lookupView{Key: key})
		case err != nil:
			return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
		}
		return mcp.NewToolResultJSON(lookupView{Key: key, Value: value, Found: true})
	}
}
