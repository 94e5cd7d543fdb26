package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/yulsp/document"
	"github.com/chazu/yulsp/lookup"
	"github.com/chazu/yulsp/query"
	"github.com/chazu/yulsp/yul"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "yulsp"

// Options configures an LspServer.
type Options struct {
	// Lookup resolves selectors on hover. Nil means lookup.Disabled.
	Lookup lookup.Service
	// Timeout bounds one hover lookup. Zero means no extra bound.
	Timeout time.Duration
	// Debug logs every JSON-RPC message at debug level.
	Debug   bool
	Version string
}

// LspServer bridges LSP editor features to the Yul parser and queries.
type LspServer struct {
	store   *document.Store
	lookup  lookup.Service
	timeout time.Duration
	debug   bool
	version string
	log     commonlog.Logger

	handler protocol.Handler

	// base is cancelled on shutdown; every request context derives from it.
	base context.Context
	stop context.CancelFunc

	// requests maps the *glsp.Context of an in-flight request to its
	// cancellable context.
	requests sync.Map

	lookupOff sync.Once
}

// NewLSP creates a new LSP server.
func NewLSP(opts Options) *LspServer {
	if opts.Lookup == nil {
		opts.Lookup = lookup.Disabled{}
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	base, stop := context.WithCancel(context.Background())
	s := &LspServer{
		store:   document.NewStore(),
		lookup:  opts.Lookup,
		timeout: opts.Timeout,
		debug:   opts.Debug,
		version: opts.Version,
		log:     commonlog.GetLogger("yulsp.server"),
		base:    base,
		stop:    stop,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		Exit:        s.exit,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	return s
}

// Documents returns the open-document store.
func (s *LspServer) Documents() *document.Store {
	return s.store
}

// requestContext returns the cancellable context of the request being
// handled with ctx, or the server context for notifications.
func (s *LspServer) requestContext(ctx *glsp.Context) context.Context {
	if v, ok := s.requests.Load(ctx); ok {
		return v.(context.Context)
	}
	return s.base
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	client := "unknown client"
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name
	}
	s.log.Notice("initializing", "client", client)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(true)},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	uris := s.store.URIs()
	s.log.Notice("shutting down", "open documents", len(uris))
	for _, uri := range uris {
		s.store.Close(uri)
	}
	s.stop()
	return nil
}

func (s *LspServer) exit(ctx *glsp.Context) error {
	s.stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	s.log.Debug("trace level changed", "value", params.Value)
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := s.store.Open(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)
	s.log.Info("opened", "uri", doc.URI, "version", doc.Version)
	s.publishDiagnostics(ctx, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	if len(params.ContentChanges) == 0 {
		return nil
	}

	doc, ok := s.store.Get(uri)
	if !ok {
		return fmt.Errorf("%w: %s", document.ErrUnknownDocument, uri)
	}

	// Changes apply in order, each to the result of the previous one.
	text := doc.Text
	for _, c := range params.ContentChanges {
		switch change := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				text = change.Text
				continue
			}
			spliced, ok := document.New(uri, doc.Version, text).Splice(*change.Range, change.Text)
			if !ok {
				return fmt.Errorf("change range %v outside %s", *change.Range, uri)
			}
			text = spliced
		default:
			return fmt.Errorf("unsupported content change %T", c)
		}
	}

	doc = s.store.Replace(uri, params.TextDocument.Version, text)
	s.publishDiagnostics(ctx, doc)
	return nil
}

func (s *LspServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc, ok := s.store.Get(uri)
	if !ok {
		return fmt.Errorf("%w: %s", document.ErrUnknownDocument, uri)
	}
	if params.Text != nil {
		doc = s.store.Replace(uri, doc.Version, *params.Text)
	}
	s.publishDiagnostics(ctx, doc)
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.store.Close(uri)
	s.log.Info("closed", "uri", uri)

	// Clear diagnostics for the closed document
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

// locate resolves the document and byte offset a position request refers
// to. An out-of-range position yields ok == false.
func (s *LspServer) locate(uri protocol.DocumentUri, pos protocol.Position) (doc *document.Document, offset int, ok bool, err error) {
	doc, found := s.store.Get(uri)
	if !found {
		return nil, 0, false, fmt.Errorf("%w: %s", document.ErrUnknownDocument, uri)
	}
	offset, ok = doc.OffsetAt(pos)
	return doc, offset, ok, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, offset, ok, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil || !ok {
		return nil, err
	}

	rctx := s.requestContext(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, s.timeout)
		defer cancel()
	}

	h, err := HoverAt(rctx, s.lookup, doc.Text, offset)
	if errors.Is(err, lookup.ErrNotConfigured) {
		// Without credentials every selector hover would fail the same way.
		s.lookupOff.Do(func() {
			s.log.Notice("signature lookup not configured, selector hovers are empty")
		})
		return nil, nil
	}
	if err != nil {
		return nil, s.queryFailed(doc, offset, err)
	}
	if h == nil {
		return nil, nil
	}

	r := doc.RangeOf(h.Location)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: h.Markdown,
		},
		Range: &r,
	}, nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, offset, ok, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil || !ok {
		return nil, err
	}

	decl, err := Definition(doc.Text, offset)
	if err != nil {
		return nil, s.queryFailed(doc, offset, err)
	}
	if decl == nil || decl.Location == nil {
		return nil, nil
	}

	return protocol.Location{
		URI:   doc.URI,
		Range: doc.RangeOf(*decl.Location),
	}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc, offset, ok, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil || !ok {
		return nil, err
	}

	refs, err := References(doc.Text, offset, params.Context.IncludeDeclaration)
	if err != nil {
		return nil, s.queryFailed(doc, offset, err)
	}

	locations := make([]protocol.Location, 0, len(refs))
	for _, id := range refs {
		if id.Location == nil {
			continue
		}
		locations = append(locations, protocol.Location{
			URI:   doc.URI,
			Range: doc.RangeOf(*id.Location),
		})
	}
	return locations, nil
}

// queryFailed logs err with the request's context. Invariant violations
// are defects in the resolver and are logged as such.
func (s *LspServer) queryFailed(doc *document.Document, offset int, err error) error {
	var pe *yul.ParseError
	switch {
	case errors.As(err, &pe):
		s.log.Debug("query on unparsable document", "uri", doc.URI, "error", err)
	case errors.Is(err, query.ErrInvariantViolation):
		s.log.Error("ast invariant violated", "uri", doc.URI, "version", doc.Version, "offset", offset, "error", err)
	}
	return err
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, doc *document.Document) {
	diagnostics := []protocol.Diagnostic{}
	source := lspName

	diags, err := Check(doc.Text)
	var pe *yul.ParseError
	switch {
	case errors.As(err, &pe):
		severity := protocol.DiagnosticSeverityError
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    doc.RangeOf(pe.Location()),
			Severity: &severity,
			Source:   &source,
			Message:  pe.Message,
		})
	case err != nil:
		s.log.Error("ast invariant violated", "uri", doc.URI, "version", doc.Version, "error", err)
	}

	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == yul.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    doc.RangeOf(d.Location),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}

	version := protocol.UInteger(doc.Version)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     &version,
		Diagnostics: diagnostics,
	})
}

func boolPtr(b bool) *bool {
	return &b
}
