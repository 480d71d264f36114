package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/trpc_client_go/internal/devseed"
	"github.com/Ratio1/trpc_client_go/pkg/link"
	"github.com/Ratio1/trpc_client_go/pkg/router"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

type greetingInput struct {
	Name string `json:"name"`
}

func newRouter() *router.Router {
	var (
		mu    sync.Mutex
		count int
	)
	r := router.New(superjson.SuperJSON)
	r.Query("greeting", func(ctx context.Context, req router.Request) (any, error) {
		var in greetingInput
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		if in.Name == "" {
			in.Name = "world"
		}
		return map[string]any{"text": "hello " + in.Name, "ssr": req.SSR}, nil
	})
	r.Query("clock", func(context.Context, router.Request) (any, error) {
		return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), nil
	})
	r.Mutation("counter.add", func(ctx context.Context, req router.Request) (any, error) {
		var in struct {
			By int `json:"by"`
		}
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		mu.Lock()
		defer mu.Unlock()
		count += in.By
		return count, nil
	})
	r.Query("explode", func(context.Context, router.Request) (any, error) {
		panic("boom")
	})
	return r
}

func serve(t *testing.T, r *router.Router) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/api/trpc/", http.StripPrefix("/api/trpc", r))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeHTTPBatchQuery(t *testing.T) {
	srv := serve(t, newRouter())

	input := `{"0":{"json":{"name":"ada"}}}`
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/trpc/greeting,clock?batch=1&input="+urlEscape(input), nil)
	require.NoError(t, err)
	req.Header.Set("X-Ssr", "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body []map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.JSONEq(t, `null`, string(body[0]["id"]))
	assert.JSONEq(t, `{"type":"data","data":{"json":{"text":"hello ada","ssr":true}}}`, string(body[0]["result"]))
	assert.JSONEq(t, `{"type":"data","data":{"json":"2024-05-06T07:08:09.000Z","meta":{"values":["Date"]}}}`, string(body[1]["result"]))
}

func TestServeHTTPMixedResultsAre207(t *testing.T) {
	srv := serve(t, newRouter())

	resp, err := http.Get(srv.URL + "/api/trpc/greeting,nope?batch=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)

	var body []map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 2)

	var shape struct {
		JSON struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
			Data    struct {
				Code       string `json:"code"`
				HTTPStatus int    `json:"httpStatus"`
				Path       string `json:"path"`
			} `json:"data"`
		} `json:"json"`
	}
	require.NoError(t, json.Unmarshal(body[1]["error"], &shape))
	assert.Equal(t, -32004, shape.JSON.Code)
	assert.Equal(t, "NOT_FOUND", shape.JSON.Data.Code)
	assert.Equal(t, http.StatusNotFound, shape.JSON.Data.HTTPStatus)
	assert.Equal(t, "nope", shape.JSON.Data.Path)
}

func TestServeHTTPSingleErrorStatus(t *testing.T) {
	srv := serve(t, newRouter())

	resp, err := http.Get(srv.URL + "/api/trpc/counter.add")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "a mutation cannot be queried")

	resp2, err := http.Post(srv.URL+"/api/trpc/greeting?batch=1", "application/json", strings.NewReader(`{"0":{"json":{}}}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/trpc/greeting", nil)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}

func TestServeHTTPBadInput(t *testing.T) {
	srv := serve(t, newRouter())

	resp, err := http.Get(srv.URL + "/api/trpc/greeting?batch=1&input=" + urlEscape(`{"5":{}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/api/trpc/counter.add", "application/json", strings.NewReader(`{not json`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestPanicBecomesInternalError(t *testing.T) {
	h := link.Chain(newRouter().Link())
	res := h(context.Background(), &link.Operation{ID: 1, Type: link.Query, Path: "explode"})

	var remote *link.RemoteError
	require.True(t, errors.As(res.Err, &remote))
	assert.Equal(t, router.CodeInternalServerError, remote.DataCode)
	assert.Equal(t, http.StatusInternalServerError, remote.HTTPStatus)
}

func TestLinkCallsInProcess(t *testing.T) {
	h := link.Chain(newRouter().Link())

	res := h(context.Background(), &link.Operation{ID: 1, Type: link.Mutation, Path: "counter.add", Input: map[string]int{"by": 3}})
	require.NoError(t, res.Err)
	var n int
	require.NoError(t, superjson.Decode(res.Data, &n))
	assert.Equal(t, 3, n)

	res = h(context.Background(), &link.Operation{ID: 2, Type: link.Query, Path: "missing"})
	assert.ErrorIs(t, res.Err, &link.RemoteError{DataCode: router.CodeNotFound})

	res = h(context.Background(), &link.Operation{ID: 3, Type: link.Subscription, Path: "greeting"})
	assert.ErrorIs(t, res.Err, link.ErrSubscriptionUnsupported)
}

func TestHTTPBatchLinkAgainstRouter(t *testing.T) {
	srv := serve(t, newRouter())
	h := link.Chain(link.HTTPBatch(link.HTTPBatchOptions{
		URL:    srv.URL + "/api/trpc",
		Window: 10 * time.Millisecond,
	}))

	var (
		wg       sync.WaitGroup
		greeting link.Result
		clock    link.Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		greeting = h(context.Background(), &link.Operation{ID: 1, Type: link.Query, Path: "greeting", Input: greetingInput{Name: "grace"}})
	}()
	go func() {
		defer wg.Done()
		clock = h(context.Background(), &link.Operation{ID: 2, Type: link.Query, Path: "clock"})
	}()
	wg.Wait()

	require.NoError(t, greeting.Err)
	var g struct {
		Text string `json:"text"`
	}
	require.NoError(t, superjson.Decode(greeting.Data, &g))
	assert.Equal(t, "hello grace", g.Text)

	require.NoError(t, clock.Err)
	var at time.Time
	require.NoError(t, superjson.Decode(clock.Data, &at))
	assert.True(t, at.Equal(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)))
}

func TestSeed(t *testing.T) {
	r := router.New(nil)
	require.NoError(t, r.Seed([]devseed.ProcedureSeedEntry{
		{Path: "config", Data: json.RawMessage(`{"theme":"dark"}`)},
		{Path: "user.byId", Error: &devseed.SeedError{Code: "NOT_FOUND", Message: "no user"}},
		{Path: "empty"},
	}))
	assert.Equal(t, []string{"config", "empty", "user.byId"}, r.Procedures())

	data, err := r.Call(context.Background(), link.Query, "config", router.Request{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"json":{"theme":"dark"}}`, string(data))

	_, err = r.Call(context.Background(), link.Query, "user.byId", router.Request{})
	var rerr *router.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "NOT_FOUND", rerr.Code)
	assert.Equal(t, http.StatusNotFound, rerr.HTTPStatus())

	data, err = r.Call(context.Background(), link.Query, "empty", router.Request{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"json":null}`, string(data))

	assert.Error(t, r.Seed([]devseed.ProcedureSeedEntry{{Path: " "}}))
}

func TestCallHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRouter().Call(ctx, link.Query, "greeting", router.Request{})

	var rerr *router.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "CLIENT_CLOSED_REQUEST", rerr.Code)
	assert.ErrorIs(t, err, context.Canceled)
}

func urlEscape(s string) string {
	r := strings.NewReplacer("{", "%7B", "}", "%7D", `"`, "%22", ":", "%3A", ",", "%2C", " ", "%20")
	return r.Replace(s)
}
