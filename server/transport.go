package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/yulsp/document"
	"github.com/chazu/yulsp/lookup"
	"github.com/chazu/yulsp/query"
	"github.com/chazu/yulsp/yul"
)

const (
	// CodeLookupFailed is the JSON-RPC server error returned when a
	// signature lookup fails.
	CodeLookupFailed = -32001
	// CodeRequestCancelled answers a request cancelled by $/cancelRequest.
	CodeRequestCancelled = -32800
)

// rpcError maps a handler error to the JSON-RPC error sent to the client.
func rpcError(err error) *jsonrpc2.Error {
	var (
		re  *jsonrpc2.Error
		pe  *yul.ParseError
		le  *lookup.Error
		pan *panicError
	)
	switch {
	case errors.As(err, &re):
		if re.Message == "" {
			return &jsonrpc2.Error{Code: re.Code, Message: defaultMessage(re.Code), Data: re.Data}
		}
		return re
	case errors.As(err, &pan):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: "internal error: " + pan.Error()}
	case errors.Is(err, context.Canceled):
		return &jsonrpc2.Error{Code: CodeRequestCancelled, Message: "request cancelled"}
	case errors.As(err, &pe):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeParseError, Message: pe.Error()}
	case errors.As(err, &le):
		return &jsonrpc2.Error{Code: CodeLookupFailed, Message: le.Error()}
	case errors.Is(err, query.ErrInvariantViolation):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	case errors.Is(err, document.ErrUnknownDocument):
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: err.Error()}
	}
}

// defaultMessage names a JSON-RPC error code for errors built without a
// message.
func defaultMessage(code int64) string {
	switch code {
	case jsonrpc2.CodeParseError:
		return "parse error"
	case jsonrpc2.CodeInvalidRequest:
		return "invalid request"
	case jsonrpc2.CodeMethodNotFound:
		return "method not found"
	case jsonrpc2.CodeInvalidParams:
		return "invalid params"
	case jsonrpc2.CodeInternalError:
		return "internal error"
	case CodeLookupFailed:
		return "lookup failed"
	case CodeRequestCancelled:
		return "request cancelled"
	default:
		return fmt.Sprintf("error %d", code)
	}
}

// connHandler serves one JSON-RPC connection. Notifications run in order
// on the read loop; each request runs on its own goroutine.
type connHandler struct {
	s   *LspServer
	log commonlog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func (s *LspServer) newConnHandler() *connHandler {
	return &connHandler{
		s:        s,
		log:      commonlog.GetLogger("yulsp.rpc"),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Handle implements jsonrpc2.Handler.
func (h *connHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		h.notification(ctx, conn, req)
		return
	}

	rctx, cancel := context.WithCancel(h.s.base)
	key := req.ID.String()
	h.mu.Lock()
	h.inflight[key] = cancel
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.inflight, key)
			h.mu.Unlock()
			cancel()
		}()

		resp := &jsonrpc2.Response{ID: req.ID}
		result, err := h.dispatch(ctx, rctx, conn, req)
		if err == nil {
			err = resp.SetResult(result)
		}
		if err != nil {
			h.logFailure(req.Method, err)
			resp.Error = rpcError(err)
		}
		if err := conn.SendResponse(ctx, resp); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
			h.log.Error("sending response", "id", key, "method", req.Method, "error", err)
		}
	}()
}

func (h *connHandler) notification(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case protocol.MethodCancelRequest:
		h.cancel(req)
		return
	}

	_, err := h.dispatch(ctx, h.s.base, conn, req)
	if req.Method == protocol.MethodExit {
		if err := conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
			h.log.Warning("closing connection", "error", err)
		}
		return
	}

	var re *jsonrpc2.Error
	if errors.As(err, &re) && re.Code == jsonrpc2.CodeMethodNotFound && strings.HasPrefix(req.Method, "$/") {
		// Optional protocol notifications may be ignored.
		return
	}
	if err != nil {
		h.logFailure(req.Method, err)
	}
}

// cancel cancels the in-flight request named by a $/cancelRequest.
func (h *connHandler) cancel(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}
	var params struct {
		ID jsonrpc2.ID `json:"id"`
	}
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		h.log.Warning("malformed cancel request", "error", err)
		return
	}

	key := params.ID.String()
	h.mu.Lock()
	cancel, ok := h.inflight[key]
	h.mu.Unlock()
	if ok {
		h.log.Debug("cancelling request", "id", key)
		cancel()
	}
}

// dispatch runs one message through the glsp handler under the panic
// guard. rctx is the context handlers see for this message.
func (h *connHandler) dispatch(ctx, rctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	gctx := &glsp.Context{
		Method: req.Method,
		Notify: func(method string, params any) {
			if err := conn.Notify(ctx, method, params); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
				h.log.Error("sending notification", "method", method, "error", err)
			}
		},
		Call: func(method string, params any, result any) {
			if err := conn.Call(rctx, method, params, result); err != nil {
				h.log.Error("calling client", "method", method, "error", err)
			}
		},
	}
	if req.Params != nil {
		gctx.Params = *req.Params
	}

	h.s.requests.Store(gctx, rctx)
	defer h.s.requests.Delete(gctx)

	return guard(req.Method, func() (any, error) {
		r, validMethod, validParams, err := h.s.handler.Handle(gctx)
		switch {
		case !validMethod:
			return nil, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeMethodNotFound,
				Message: fmt.Sprintf("method not supported: %s", req.Method),
			}
		case !validParams:
			e := &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "invalid params for " + req.Method}
			if err != nil {
				e.Message = err.Error()
			}
			return nil, e
		}
		return r, err
	})
}

func (h *connHandler) logFailure(method string, err error) {
	var pan *panicError
	var le *lookup.Error
	switch {
	case errors.As(err, &pan):
		h.log.Critical("handler panicked", "method", method, "panic", pan.value, "stack", string(pan.stack))
	case errors.Is(err, query.ErrInvariantViolation):
		// already logged with document context
	case errors.Is(err, context.Canceled):
		h.log.Debug("request cancelled", "method", method)
	case errors.As(err, &le):
		h.log.Warning("lookup failed", "method", method, "error", err)
	default:
		h.log.Info("request failed", "method", method, "error", err)
	}
}

// rpcLogger adapts commonlog for jsonrpc2 message tracing.
type rpcLogger struct {
	log commonlog.Logger
}

// jsonrpc2.Logger interface
func (l *rpcLogger) Printf(format string, v ...any) {
	l.log.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

// ServeStream serves one client over stream until the client disconnects
// or ctx is done.
func (s *LspServer) ServeStream(ctx context.Context, stream io.ReadWriteCloser) {
	var opts []jsonrpc2.ConnOpt
	if s.debug {
		opts = append(opts, jsonrpc2.LogMessages(&rpcLogger{commonlog.GetLogger("yulsp.rpc.trace")}))
	}
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}), s.newConnHandler(), opts...)

	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
		<-conn.DisconnectNotify()
	}
	s.stop()
}

// Close cancels every in-flight request.
func (s *LspServer) Close() {
	s.stop()
}

// RunStdio serves a single client on stdin/stdout. Blocks until the client
// disconnects.
func (s *LspServer) RunStdio(ctx context.Context) error {
	s.log.Info("reading from stdin, writing to stdout")
	s.ServeStream(ctx, stdrwc{})
	s.log.Info("stdin/stdout connection closed")
	return nil
}

type stdrwc struct{}

// io.ReadWriteCloser interface
func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

// io.ReadWriteCloser interface
func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

// io.ReadWriteCloser interface
func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// RunTCP accepts clients on address until ctx is done. Every connection
// gets its own server from newServer, so clients never share documents.
func RunTCP(ctx context.Context, address string, newServer func() *LspServer) error {
	log := commonlog.GetLogger("yulsp.server")

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	log.Noticef("listening for TCP connections on %s", listener.Addr())

	var wg sync.WaitGroup
	defer wg.Wait()

	connectionCount := 0
	for {
		connection, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		connectionCount++
		id := connectionCount
		log.Infof("received incoming TCP connection #%d", id)

		wg.Add(1)
		go func() {
			defer wg.Done()
			newServer().ServeStream(ctx, connection)
			log.Infof("connection #%d closed", id)
		}()
	}
}
