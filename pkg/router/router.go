package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/trpc_client_go/internal/devseed"
	"github.com/Ratio1/trpc_client_go/internal/httpx"
	"github.com/Ratio1/trpc_client_go/internal/wire"
	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
	"github.com/Ratio1/trpc_client_go/pkg/link"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

// maxBodyBytes caps the size of a mutation batch body.
const maxBodyBytes = 1 << 20

// ProcedureFunc implements a procedure. The returned value is encoded with
// the router's transformer.
type ProcedureFunc func(ctx context.Context, req Request) (any, error)

// Request is the input of a single call.
type Request struct {
	// Input is the transformer-encoded input; empty when the caller sent none.
	Input  json.RawMessage
	Header http.Header
	// SSR is set when the call was issued during a server render.
	SSR bool

	transformer superjson.Transformer
}

// Decode restores the input into out. A call without input leaves out
// untouched. Malformed input is reported as BAD_REQUEST.
func (r Request) Decode(out any) error {
	if len(bytes.TrimSpace(r.Input)) == 0 {
		return nil
	}
	t := r.transformer
	if t == nil {
		t = superjson.SuperJSON
	}
	if err := t.Decode(r.Input, out); err != nil {
		return &Error{Code: CodeBadRequest, Message: "invalid input", Cause: err}
	}
	return nil
}

type procedure struct {
	typ link.OpType
	fn  ProcedureFunc
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(l *log.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// Router maps procedure paths to their implementations. It is safe for
// concurrent use.
type Router struct {
	transformer superjson.Transformer
	logger      *log.Logger

	mu    sync.RWMutex
	procs map[string]procedure
}

// New creates an empty router. A nil transformer selects superjson.
func New(t superjson.Transformer, opts ...Option) *Router {
	if t == nil {
		t = superjson.SuperJSON
	}
	r := &Router{
		transformer: t,
		logger:      log.Default(),
		procs:       make(map[string]procedure),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query registers a query procedure, replacing any procedure at path.
func (r *Router) Query(path string, fn ProcedureFunc) *Router {
	return r.register(path, link.Query, fn)
}

// Mutation registers a mutation procedure, replacing any procedure at path.
func (r *Router) Mutation(path string, fn ProcedureFunc) *Router {
	return r.register(path, link.Mutation, fn)
}

func (r *Router) register(path string, typ link.OpType, fn ProcedureFunc) *Router {
	path = strings.TrimSpace(path)
	if path == "" || fn == nil {
		panic(fmt.Sprintf("router: invalid %s registration %q", typ, path))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[path] = procedure{typ: typ, fn: fn}
	return r
}

// Seed registers a static query for every entry.
func (r *Router) Seed(entries []devseed.ProcedureSeedEntry) error {
	for _, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("router: seed entry missing path")
		}
		entry := e
		r.Query(entry.Path, func(context.Context, Request) (any, error) {
			if entry.Error != nil {
				code := entry.Error.Code
				if code == "" {
					code = CodeInternalServerError
				}
				return nil, NewError(code, entry.Error.Message)
			}
			if len(entry.Data) == 0 {
				return nil, nil
			}
			return json.RawMessage(append([]byte(nil), entry.Data...)), nil
		})
	}
	return nil
}

// Procedures lists the registered paths in order.
func (r *Router) Procedures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.procs))
	for p := range r.procs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Call runs one procedure and returns its transformer-encoded output.
// Failures are always *Error values.
func (r *Router) Call(ctx context.Context, typ link.OpType, path string, req Request) (json.RawMessage, error) {
	r.mu.RLock()
	proc, ok := r.procs[path]
	r.mu.RUnlock()
	if !ok {
		return nil, Errorf(CodeNotFound, "no %s procedure on path %q", typ, path)
	}
	if proc.typ != typ {
		return nil, Errorf(CodeMethodNotSupported, "%q is a %s, not a %s", path, proc.typ, typ)
	}
	if err := ctx.Err(); err != nil {
		return nil, asError(err)
	}

	req.transformer = r.transformer
	value, err := r.invoke(ctx, path, proc.fn, req)
	if err != nil {
		return nil, asError(err)
	}
	data, err := r.transformer.Serialize(value)
	if err != nil {
		return nil, &Error{Code: CodeInternalServerError, Message: "encode output", Cause: err}
	}
	return data, nil
}

func (r *Router) invoke(ctx context.Context, path string, fn ProcedureFunc, req Request) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Printf("router: panic in %s: %v", path, p)
			value, err = nil, Errorf(CodeInternalServerError, "procedure %q panicked", path)
		}
	}()
	return fn(ctx, req)
}

// Link returns a terminating link that calls procedures in-process.
func (r *Router) Link() link.Link {
	return link.Terminating(func(ctx context.Context, op *link.Operation) link.Result {
		if op.Type == link.Subscription {
			return link.Result{Err: link.ErrSubscriptionUnsupported}
		}
		var input json.RawMessage
		if op.Input != nil {
			raw, err := r.transformer.Serialize(op.Input)
			if err != nil {
				return link.Result{Err: fmt.Errorf("router: encode input of %s: %w", op.Path, err)}
			}
			input = raw
		}
		data, err := r.Call(ctx, op.Type, op.Path, Request{Input: input, Header: make(http.Header)})
		if err != nil {
			e := asError(err)
			return link.Result{Err: &link.RemoteError{
				Message:    e.Message,
				Code:       wire.JSONRPCCode(e.Code),
				DataCode:   e.Code,
				HTTPStatus: e.HTTPStatus(),
				Path:       op.Path,
			}}
		}
		return link.Result{Data: data}
	})
}

// ServeHTTP answers /p1,p2?batch=1 style requests. Mount it below the RPC
// prefix with http.StripPrefix.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	batch := req.URL.Query().Get("batch") == "1"
	paths := strings.Split(strings.Trim(req.URL.Path, "/"), ",")

	var typ link.OpType
	switch req.Method {
	case http.MethodGet:
		typ = link.Query
	case http.MethodPost:
		typ = link.Mutation
	default:
		r.writeFailure(w, batch, paths, NewError(CodeMethodNotSupported, "unsupported method "+req.Method))
		return
	}
	if !batch && len(paths) > 1 {
		r.writeFailure(w, false, paths[:1], NewError(CodeBadRequest, "batching is not enabled for this request"))
		return
	}

	raw, err := readInput(w, req, typ)
	if err != nil {
		r.writeFailure(w, batch, paths, &Error{Code: CodeBadRequest, Message: "read input", Cause: err})
		return
	}
	inputs := []json.RawMessage{raw}
	if batch {
		inputs, err = wire.DecodeInputs(raw, len(paths))
		if err != nil {
			r.writeFailure(w, batch, paths, &Error{Code: CodeBadRequest, Message: "invalid batch input", Cause: err})
			return
		}
	}

	header := req.Header.Clone()
	ssr := req.Header.Get(endpoint.HeaderSSR) == "1"
	envelopes := make([]wire.Envelope, len(paths))
	statuses := make([]int, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			data, err := r.Call(req.Context(), typ, path, Request{Input: inputs[i], Header: header, SSR: ssr})
			if err != nil {
				envelopes[i], statuses[i] = r.errorEnvelope(path, asError(err))
				return nil
			}
			envelopes[i] = wire.Envelope{Result: &wire.Result{Type: wire.ResultTypeData, Data: data}}
			statuses[i] = http.StatusOK
			return nil
		})
	}
	_ = g.Wait()

	r.write(w, batch, envelopes, wire.BatchStatus(statuses))
}

func readInput(w http.ResponseWriter, req *http.Request, typ link.OpType) (json.RawMessage, error) {
	if typ == link.Query {
		if v := req.URL.Query().Get("input"); v != "" {
			return json.RawMessage(v), nil
		}
		return nil, nil
	}
	if req.Body == nil {
		return nil, nil
	}
	body, err := httpx.ReadAllAndClose(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return body, nil
}

func (r *Router) errorEnvelope(path string, e *Error) (wire.Envelope, int) {
	raw, err := r.transformer.Serialize(e.shape(path))
	if err != nil {
		r.logger.Printf("router: encode error shape for %s: %v", path, err)
		raw = json.RawMessage(`null`)
	}
	return wire.Envelope{Error: raw}, e.HTTPStatus()
}

func (r *Router) writeFailure(w http.ResponseWriter, batch bool, paths []string, e *Error) {
	envelopes := make([]wire.Envelope, len(paths))
	status := e.HTTPStatus()
	for i, p := range paths {
		envelopes[i], _ = r.errorEnvelope(p, e)
	}
	r.write(w, batch, envelopes, status)
}

func (r *Router) write(w http.ResponseWriter, batch bool, envelopes []wire.Envelope, status int) {
	var payload any = envelopes
	if !batch {
		payload = envelopes[0]
	}
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(body))
}
