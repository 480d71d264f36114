package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/trpc_client_go/pkg/client"
	"github.com/Ratio1/trpc_client_go/pkg/link"
	"github.com/Ratio1/trpc_client_go/pkg/router"
)

// countingLink counts the operations that reach the terminating link.
func countingLink(n *atomic.Int64) link.Link {
	return func(next link.Handler) link.Handler {
		return func(ctx context.Context, op *link.Operation) link.Result {
			n.Add(1)
			return next(ctx, op)
		}
	}
}

func demoRouter(release <-chan struct{}) *router.Router {
	r := router.New(nil)
	r.Query("greeting", func(ctx context.Context, req router.Request) (any, error) {
		var in struct {
			Name string `json:"name"`
		}
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		return "hello " + in.Name, nil
	})
	r.Query("slow", func(ctx context.Context, req router.Request) (any, error) {
		<-release
		return "done", nil
	})
	r.Mutation("echo", func(ctx context.Context, req router.Request) (any, error) {
		var in map[string]any
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		return in, nil
	})
	return r
}

func TestQueryServedFromCacheWithinStaleTime(t *testing.T) {
	var calls atomic.Int64
	now := time.Now()
	c, err := client.New(client.Config{
		Links:       []link.Link{countingLink(&calls), demoRouter(nil).Link()},
		QueryClient: client.QueryClientConfig{StaleTime: time.Second},
	}, client.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ctx := context.Background()
	var out string
	require.NoError(t, c.Query(ctx, "greeting", map[string]string{"name": "ada"}, &out))
	assert.Equal(t, "hello ada", out)

	out = ""
	require.NoError(t, c.Query(ctx, "greeting", map[string]string{"name": "ada"}, &out))
	assert.Equal(t, "hello ada", out)
	assert.EqualValues(t, 1, calls.Load(), "fresh result must not hit the transport")

	require.NoError(t, c.Query(ctx, "greeting", map[string]string{"name": "bob"}, &out))
	assert.EqualValues(t, 2, calls.Load(), "different input is a different cache entry")

	now = now.Add(2 * time.Second)
	require.NoError(t, c.Query(ctx, "greeting", map[string]string{"name": "ada"}, &out))
	assert.EqualValues(t, 3, calls.Load(), "stale result is refetched")

	c.Invalidate("greeting")
	require.NoError(t, c.Query(ctx, "greeting", map[string]string{"name": "ada"}, &out))
	assert.EqualValues(t, 4, calls.Load())
}

func TestDefaultStaleTime(t *testing.T) {
	var calls atomic.Int64
	now := time.Now()
	c, err := client.New(client.Config{
		Links: []link.Link{countingLink(&calls), demoRouter(nil).Link()},
	}, client.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Query(ctx, "greeting", nil, nil))
	now = now.Add(client.DefaultStaleTime - time.Millisecond)
	require.NoError(t, c.Query(ctx, "greeting", nil, nil))
	assert.EqualValues(t, 1, calls.Load())

	now = now.Add(time.Millisecond)
	require.NoError(t, c.Query(ctx, "greeting", nil, nil))
	assert.EqualValues(t, 2, calls.Load())
}

func TestConcurrentQueriesShareOneCall(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	c, err := client.New(client.Config{
		Links: []link.Link{countingLink(&calls), demoRouter(release).Link()},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Query(context.Background(), "slow", nil, &results[i])
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, "done", r)
	}
}

func TestQueryCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c, err := client.New(client.Config{Links: []link.Link{demoRouter(release).Link()}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.Query(ctx, "slow", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalidateDuringFetchIsNotUndone(t *testing.T) {
	for _, target := range []string{"slow", ""} {
		var calls atomic.Int64
		started := make(chan struct{}, 1)
		release := make(chan struct{})
		r := router.New(nil).Query("slow", func(context.Context, router.Request) (any, error) {
			started <- struct{}{}
			<-release
			return "done", nil
		})
		c, err := client.New(client.Config{
			Links:       []link.Link{countingLink(&calls), r.Link()},
			QueryClient: client.QueryClientConfig{StaleTime: time.Hour},
		})
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- c.Query(context.Background(), "slow", nil, nil) }()
		<-started
		c.Invalidate(target)
		close(release)
		require.NoError(t, <-done)

		require.NoError(t, c.Query(context.Background(), "slow", nil, nil))
		assert.EqualValues(t, 2, calls.Load(), "invalidate(%q) must drop the in-flight result", target)
	}
}

func TestMutationIsNeverCached(t *testing.T) {
	var calls atomic.Int64
	c, err := client.New(client.Config{
		Links: []link.Link{countingLink(&calls), demoRouter(nil).Link()},
	})
	require.NoError(t, err)

	var out map[string]any
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Mutation(context.Background(), "echo", map[string]any{"n": 1}, &out))
	}
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, map[string]any{"n": float64(1)}, out)
}

func TestRemoteErrors(t *testing.T) {
	c, err := client.New(client.Config{Links: []link.Link{demoRouter(nil).Link()}})
	require.NoError(t, err)

	err = c.Query(context.Background(), "missing", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.NotErrorIs(t, err, client.ErrBadRequest)

	var cerr *client.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "missing", cerr.Path)
	assert.Equal(t, http.StatusNotFound, cerr.HTTPStatus)

	err = c.Mutation(context.Background(), "greeting", nil, nil)
	assert.ErrorIs(t, err, client.ErrMethodNotSupported)
}

func TestPrefetch(t *testing.T) {
	var calls atomic.Int64
	newClient := func(server, ssr bool) *client.Client {
		c, err := client.New(client.Config{
			Links:  []link.Link{countingLink(&calls), demoRouter(nil).Link()},
			Server: server,
			SSR:    ssr,
		})
		require.NoError(t, err)
		return c
	}
	ctx := context.Background()

	require.NoError(t, newClient(true, false).Prefetch(ctx, "greeting", nil))
	assert.EqualValues(t, 0, calls.Load(), "server render without SSR skips prefetch")

	require.NoError(t, newClient(true, true).Prefetch(ctx, "greeting", nil))
	assert.EqualValues(t, 1, calls.Load())

	browser := newClient(false, false)
	require.NoError(t, browser.Prefetch(ctx, "greeting", nil))
	var out string
	require.NoError(t, browser.Query(ctx, "greeting", nil, &out))
	assert.EqualValues(t, 2, calls.Load(), "prefetched result is reused")
}

func TestNewDefaultsToHTTPBatch(t *testing.T) {
	r := demoRouter(nil)
	mux := http.NewServeMux()
	mux.Handle("/api/trpc/", http.StripPrefix("/api/trpc", r))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := client.New(client.Config{URL: srv.URL + "/api/trpc"})
	require.NoError(t, err)

	var out string
	require.NoError(t, c.Query(context.Background(), "greeting", map[string]string{"name": "lin"}, &out))
	assert.Equal(t, "hello lin", out)

	_, err = client.New(client.Config{})
	assert.ErrorIs(t, err, client.ErrNoTransport)
}
