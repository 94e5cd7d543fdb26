package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/yulsp/lookup"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// Tests drive a real LspServer over an in-memory pipe with a jsonrpc2
// client, so every request goes through the transport, the glsp handler
// and the error mapping.
// ---------------------------------------------------------------------------

// fakeLookup is a lookup.Service with canned answers.
type fakeLookup struct {
	mu    sync.Mutex
	sigs  map[string]string
	err   error  // returned for every selector when set
	panic string // panics with this value when set
	block bool   // waits for the context when set
	calls int
}

func (f *fakeLookup) FunctionSignature(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.panic != "" {
		panic(f.panic)
	}
	if f.block {
		<-ctx.Done()
		return "", &lookup.Error{Op: lookup.OpFunctionSignature, Key: selector, Err: ctx.Err()}
	}
	if f.err != nil {
		return "", &lookup.Error{Op: lookup.OpFunctionSignature, Key: selector, Err: f.err}
	}
	if sig, ok := f.sigs[lookup.NormalizeKey(selector)]; ok {
		return sig, nil
	}
	return "", &lookup.Error{Op: lookup.OpFunctionSignature, Key: selector, Err: lookup.ErrNotFound}
}

func (f *fakeLookup) ContractName(ctx context.Context, address string) (string, error) {
	if address == "0xdac17f958d2ee523a2206206994597c13d831ec7" {
		return "TetherToken", nil
	}
	return "", &lookup.Error{Op: lookup.OpContractName, Key: address, Err: lookup.ErrNotFound}
}

func (f *fakeLookup) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testClient is an editor connected to an LspServer.
type testClient struct {
	t     *testing.T
	ctx   context.Context
	conn  *jsonrpc2.Conn
	diags chan protocol.PublishDiagnosticsParams
}

// newTestClient starts a server with svc and completes the initialize
// handshake.
func newTestClient(t *testing.T, svc lookup.Service) *testClient {
	t.Helper()

	c := dial(t, NewLSP(Options{Lookup: svc, Timeout: 5 * time.Second, Version: "test"}))
	c.initialize()
	return c
}

func (c *testClient) initialize() {
	c.t.Helper()
	var result map[string]any
	c.call(protocol.MethodInitialize, map[string]any{
		"processId":    nil,
		"rootUri":      nil,
		"capabilities": map[string]any{},
	}, &result)
	c.notify(protocol.MethodInitialized, map[string]any{})
}

// dial connects a client to srv without initializing it.
func dial(t *testing.T, srv *LspServer) *testClient {
	t.Helper()

	serverSide, clientSide := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		srv.ServeStream(ctx, serverSide)
		close(served)
	}()

	c := &testClient{
		t:     t,
		ctx:   ctx,
		diags: make(chan protocol.PublishDiagnosticsParams, 64),
	}
	c.conn = jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			if req.Method == protocol.ServerTextDocumentPublishDiagnostics && req.Params != nil {
				var p protocol.PublishDiagnosticsParams
				if err := json.Unmarshal(*req.Params, &p); err == nil {
					c.diags <- p
				}
			}
			return nil, nil
		}))

	t.Cleanup(func() {
		c.conn.Close()
		cancel()
		<-served
	})
	return c
}

func (c *testClient) call(method string, params, result any) {
	c.t.Helper()
	if err := c.tryCall(method, params, result); err != nil {
		c.t.Fatalf("%s: %v", method, err)
	}
}

func (c *testClient) tryCall(method string, params, result any) error {
	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()
	return c.conn.Call(ctx, method, params, result)
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	if err := c.conn.Notify(c.ctx, method, params); err != nil {
		c.t.Fatalf("%s: %v", method, err)
	}
}

func (c *testClient) open(uri, text string) protocol.PublishDiagnosticsParams {
	c.t.Helper()
	c.notify(protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "yul", Version: 1, Text: text},
	})
	return c.nextDiagnostics()
}

func (c *testClient) nextDiagnostics() protocol.PublishDiagnosticsParams {
	c.t.Helper()
	select {
	case p := <-c.diags:
		return p
	case <-time.After(5 * time.Second):
		c.t.Fatal("timed out waiting for diagnostics")
	}
	return protocol.PublishDiagnosticsParams{}
}

func position(uri string, line, char uint32) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     protocol.Position{Line: line, Character: char},
	}
}

// rpcCode returns the JSON-RPC error code carried by err, or 0.
func rpcCode(err error) int64 {
	var re *jsonrpc2.Error
	if errors.As(err, &re) {
		return re.Code
	}
	return 0
}

func bg() context.Context {
	return context.Background()
}
