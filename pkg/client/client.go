// Package client issues typed queries and mutations through a link chain and
// keeps a small cache of query results.
package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Ratio1/trpc_client_go/pkg/link"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

// DefaultStaleTime is how long a query result is served from cache.
const DefaultStaleTime = 60 * time.Millisecond

// HeadersFunc returns the headers of an outgoing HTTP request.
type HeadersFunc = link.HeadersFunc

// QueryClientConfig tunes the query cache.
type QueryClientConfig struct {
	// StaleTime is the cache lifetime of a result. Zero selects
	// DefaultStaleTime; a negative value disables caching.
	StaleTime time.Duration
}

// Config describes how a Client reaches the server.
type Config struct {
	// Links is the link chain. When empty, a batching HTTP link to URL is
	// used.
	Links       []link.Link
	URL         string
	Transformer superjson.Transformer
	Headers     HeadersFunc
	// SSR enables prefetching while rendering on the server.
	SSR bool
	// Server marks a client created for a server render.
	Server      bool
	QueryClient QueryClientConfig
}

// Option tweaks a Client beyond its Config.
type Option func(*Client)

// WithClock overrides the clock used for cache freshness.
func WithClock(fn func() time.Time) Option {
	return func(c *Client) {
		if fn != nil {
			c.now = fn
		}
	}
}

type cacheEntry struct {
	path    string
	data    []byte
	fetched time.Time
}

// Client is safe for concurrent use.
type Client struct {
	handler     link.Handler
	transformer superjson.Transformer
	staleTime   time.Duration
	ssr         bool
	server      bool
	now         func() time.Time

	nextID atomic.Int64
	flight singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
	// Invalidate bumps these; a fetch started under an older value is not
	// stored.
	epoch uint64
	gens  map[string]uint64
}

type generation struct{ epoch, path uint64 }

// New builds a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	t := cfg.Transformer
	if t == nil {
		t = superjson.SuperJSON
	}
	links := cfg.Links
	if len(links) == 0 {
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, ErrNoTransport
		}
		links = []link.Link{link.HTTPBatch(link.HTTPBatchOptions{
			URL:         cfg.URL,
			Headers:     cfg.Headers,
			Transformer: t,
		})}
	}
	stale := cfg.QueryClient.StaleTime
	if stale == 0 {
		stale = DefaultStaleTime
	}

	c := &Client{
		handler:     link.Chain(links...),
		transformer: t,
		staleTime:   stale,
		ssr:         cfg.SSR,
		server:      cfg.Server,
		now:         time.Now,
		cache:       make(map[string]cacheEntry),
		gens:        make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query calls a query procedure and decodes its output into out (which may be
// nil). Results fresher than the stale time are served from cache, and
// identical concurrent queries share one call.
func (c *Client) Query(ctx context.Context, path string, input any, out any) error {
	key, err := c.cacheKey(path, input)
	if err != nil {
		return err
	}
	if data, ok := c.cached(key); ok {
		return c.decode(path, data, out)
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		gen := c.generation(path)
		res := c.handler(context.WithoutCancel(ctx), c.operation(link.Query, path, input))
		if res.Err != nil {
			return nil, res.Err
		}
		c.store(key, path, gen, res.Data)
		return []byte(res.Data), nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return fmt.Errorf("client: query %s: %w", path, r.Err)
		}
		return c.decode(path, r.Val.([]byte), out)
	}
}

// Mutation calls a mutation procedure and decodes its output into out (which
// may be nil). Mutations are never cached.
func (c *Client) Mutation(ctx context.Context, path string, input any, out any) error {
	res := c.handler(ctx, c.operation(link.Mutation, path, input))
	if res.Err != nil {
		return fmt.Errorf("client: mutation %s: %w", path, res.Err)
	}
	return c.decode(path, res.Data, out)
}

// Prefetch warms the cache for a query. On a server-render client without
// SSR it does nothing.
func (c *Client) Prefetch(ctx context.Context, path string, input any) error {
	if c.server && !c.ssr {
		return nil
	}
	return c.Query(ctx, path, input, nil)
}

// Invalidate drops cached results of path for every input. An empty path
// clears the whole cache.
func (c *Client) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == "" {
		c.epoch++
	} else {
		c.gens[path]++
	}
	for key, e := range c.cache {
		if path == "" || e.path == path {
			delete(c.cache, key)
		}
	}
}

func (c *Client) operation(typ link.OpType, path string, input any) *link.Operation {
	return &link.Operation{
		ID:    c.nextID.Add(1),
		Type:  typ,
		Path:  path,
		Input: input,
	}
}

func (c *Client) cacheKey(path string, input any) (string, error) {
	if input == nil {
		return path, nil
	}
	raw, err := c.transformer.Serialize(input)
	if err != nil {
		return "", fmt.Errorf("client: encode input of %s: %w", path, err)
	}
	return path + "\x00" + string(raw), nil
}

func (c *Client) cached(key string) ([]byte, bool) {
	if c.staleTime < 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetched) >= c.staleTime {
		delete(c.cache, key)
		return nil, false
	}
	return e.data, true
}

func (c *Client) generation(path string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{epoch: c.epoch, path: c.gens[path]}
}

func (c *Client) store(key, path string, gen generation, data []byte) {
	if c.staleTime < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != (generation{epoch: c.epoch, path: c.gens[path]}) {
		return
	}
	c.cache[key] = cacheEntry{path: path, data: append([]byte(nil), data...), fetched: c.now()}
}

func (c *Client) decode(path string, data []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := c.transformer.Decode(data, out); err != nil {
		return fmt.Errorf("client: decode output of %s: %w", path, err)
	}
	return nil
}
