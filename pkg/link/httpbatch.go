package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eapache/queue"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Ratio1/trpc_client_go/internal/httpx"
	"github.com/Ratio1/trpc_client_go/internal/wire"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

// DefaultBatchWindow is how long the batch link waits for more calls before
// sending a request.
const DefaultBatchWindow = time.Millisecond

// HeadersFunc returns the headers of an outgoing request. It is evaluated
// once per HTTP request.
type HeadersFunc func(ctx context.Context) http.Header

// HTTPOptions configures the non-batching HTTP link.
type HTTPOptions struct {
	URL         string
	Headers     HeadersFunc
	Transformer superjson.Transformer
	Client      *http.Client
}

// HTTPBatchOptions configures the batching HTTP link.
type HTTPBatchOptions struct {
	URL         string
	Headers     HeadersFunc
	Transformer superjson.Transformer
	Client      *http.Client
	// Window is the coalescing interval; 0 means DefaultBatchWindow.
	Window time.Duration
	// MaxItems caps the calls per request; 0 means unlimited.
	MaxItems int
	// MaxURLLength splits query batches whose URL would get longer; 0 means
	// unlimited.
	MaxURLLength int
}

// HTTP returns a terminating link that sends each operation in its own
// request.
func HTTP(opts HTTPOptions) Link {
	t, err := newTransport(opts.URL, opts.Headers, opts.Transformer, opts.Client)
	if err != nil {
		return failing(err)
	}
	return Terminating(func(ctx context.Context, op *Operation) Result {
		c, res, ok := t.prepare(ctx, op)
		if !ok {
			return res
		}
		t.send(ctx, op.Type, []*call{c}, false)
		return c.wait(ctx)
	})
}

// HTTPBatch returns a terminating link that coalesces operations of the same
// type issued within the batch window into one request.
func HTTPBatch(opts HTTPBatchOptions) Link {
	t, err := newTransport(opts.URL, opts.Headers, opts.Transformer, opts.Client)
	if err != nil {
		return failing(err)
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultBatchWindow
	}
	b := &batcher{
		transport:    t,
		window:       window,
		maxItems:     opts.MaxItems,
		maxURLLength: opts.MaxURLLength,
		pending:      make(map[OpType]*queue.Queue),
	}
	return Terminating(func(ctx context.Context, op *Operation) Result {
		c, res, ok := t.prepare(ctx, op)
		if !ok {
			return res
		}
		b.enqueue(c)
		return c.wait(ctx)
	})
}

func failing(err error) Link {
	return Terminating(func(context.Context, *Operation) Result {
		return Result{Err: err}
	})
}

type call struct {
	ctx   context.Context
	op    *Operation
	input json.RawMessage
	done  chan Result
}

func (c *call) wait(ctx context.Context) Result {
	select {
	case res := <-c.done:
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

type transport struct {
	client      *httpx.Client
	headers     HeadersFunc
	transformer superjson.Transformer
}

func newTransport(rawURL string, headers HeadersFunc, t superjson.Transformer, hc *http.Client) (*transport, error) {
	var opts []httpx.Option
	if hc != nil {
		opts = append(opts, httpx.WithHTTPClient(hc))
	}
	client, err := httpx.NewClient(rawURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	if t == nil {
		t = superjson.SuperJSON
	}
	return &transport{client: client, headers: headers, transformer: t}, nil
}

func (t *transport) prepare(ctx context.Context, op *Operation) (*call, Result, bool) {
	if op.Type == Subscription {
		return nil, Result{Err: ErrSubscriptionUnsupported}, false
	}
	c := &call{ctx: ctx, op: op, done: make(chan Result, 1)}
	if op.Input != nil {
		input, err := t.transformer.Serialize(op.Input)
		if err != nil {
			return nil, Result{Err: fmt.Errorf("link: encode input of %s: %w", op.Path, err)}, false
		}
		c.input = input
	}
	return c, Result{}, true
}

func (t *transport) request(typ OpType, calls []*call, batch bool) (*httpx.Request, error) {
	paths := make([]string, len(calls))
	inputs := make([]json.RawMessage, len(calls))
	for i, c := range calls {
		paths[i] = c.op.Path
		inputs[i] = c.input
	}

	req := &httpx.Request{
		Path:  strings.Join(paths, ","),
		Query: url.Values{},
	}
	var body []byte
	if batch {
		req.Query.Set("batch", "1")
		encoded, err := wire.EncodeInputs(inputs)
		if err != nil {
			return nil, err
		}
		body = encoded
	} else if inputs[0] != nil {
		body = inputs[0]
	}

	switch typ {
	case Query:
		req.Method = http.MethodGet
		if body != nil {
			req.Query.Set("input", string(body))
		}
	default:
		req.Method = http.MethodPost
		req.Header = http.Header{"Content-Type": {"application/json"}}
		req.Body = body
	}
	return req, nil
}

func (t *transport) send(ctx context.Context, typ OpType, calls []*call, batch bool) {
	req, err := t.request(typ, calls, batch)
	if err != nil {
		deliverAll(calls, Result{Err: fmt.Errorf("link: encode batch: %w", err)})
		return
	}
	header := make(http.Header)
	if t.headers != nil {
		for k, v := range t.headers(ctx) {
			header[k] = append([]string(nil), v...)
		}
	}
	for k, v := range req.Header {
		header[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
	req.Header = header

	_, body, err := t.client.Do(ctx, req)
	if len(body) == 0 {
		if err == nil {
			err = errors.New("link: empty response body")
		}
		deliverAll(calls, Result{Err: err})
		return
	}

	envelopes, decodeErr := wire.DecodeBatch(body)
	if decodeErr != nil || len(envelopes) != len(calls) {
		if err == nil {
			err = decodeErr
		}
		if err == nil {
			err = fmt.Errorf("link: expected %d results, got %d", len(calls), len(envelopes))
		}
		deliverAll(calls, Result{Err: err})
		return
	}

	for i, c := range calls {
		env := envelopes[i]
		switch {
		case len(env.Error) > 0:
			c.done <- Result{Err: decodeRemoteError(t.transformer, env.Error, c.op.Path)}
		case env.Result != nil:
			c.done <- Result{Data: env.Result.Data}
		default:
			c.done <- Result{Err: fmt.Errorf("link: result %d carries neither data nor error", i)}
		}
	}
}

func deliverAll(calls []*call, res Result) {
	for _, c := range calls {
		c.done <- res
	}
}

type batcher struct {
	*transport
	window       time.Duration
	maxItems     int
	maxURLLength int

	mu      sync.Mutex
	pending map[OpType]*queue.Queue
}

func (b *batcher) enqueue(c *call) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.pending[c.op.Type]
	if q == nil {
		q = queue.New()
		b.pending[c.op.Type] = q
	}
	q.Add(c)
	if q.Length() == 1 {
		typ := c.op.Type
		time.AfterFunc(b.window, func() { b.flush(typ) })
	}
}

func (b *batcher) flush(typ OpType) {
	b.mu.Lock()
	q := b.pending[typ]
	var calls []*call
	for q != nil && q.Length() > 0 {
		calls = append(calls, q.Remove().(*call))
	}
	b.mu.Unlock()

	for _, group := range b.split(typ, calls) {
		// A batch outlives any single caller: it keeps the values of the
		// first context but not its cancellation, and each caller stops
		// waiting on its own context.
		go b.send(context.WithoutCancel(group[0].ctx), typ, group, true)
	}
}

// split groups calls so that no request exceeds maxItems or, for queries,
// maxURLLength. A single call is never split further.
func (b *batcher) split(typ OpType, calls []*call) [][]*call {
	var (
		groups  [][]*call
		current []*call
	)
	for _, c := range calls {
		candidate := append(current[:len(current):len(current)], c)
		if len(current) > 0 && !b.fits(typ, candidate) {
			groups = append(groups, current)
			candidate = []*call{c}
		}
		current = candidate
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func (b *batcher) fits(typ OpType, calls []*call) bool {
	if b.maxItems > 0 && len(calls) > b.maxItems {
		return false
	}
	if b.maxURLLength <= 0 || typ != Query {
		return true
	}
	req, err := b.request(typ, calls, true)
	if err != nil {
		return true
	}
	return len(b.client.URL(req.Path, req.Query)) <= b.maxURLLength
}
