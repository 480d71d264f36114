package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/trpc_client_go/pkg/client"
	"github.com/Ratio1/trpc_client_go/pkg/router"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

func TestParseFailConfig(t *testing.T) {
	cfg, err := parseFailConfig("rate=0.25, code=503")
	require.NoError(t, err)
	assert.Equal(t, failConfig{rate: 0.25, code: 503}, cfg)

	cfg, err = parseFailConfig("")
	require.NoError(t, err)
	assert.Zero(t, cfg)

	for _, bad := range []string{"rate", "rate=x", "code=y", "speed=1", "rate=2"} {
		_, err := parseFailConfig(bad)
		assert.Error(t, err, bad)
	}
}

func TestExports(t *testing.T) {
	assert.Contains(t, exports(":8080"), "export PORT=8080")
	assert.Contains(t, exports("127.0.0.1:3001"), "export PORT=3001")
}

func TestDemoProcedures(t *testing.T) {
	r := router.New(superjson.SuperJSON)
	registerDemo(r, newCounter())
	srv := httptest.NewServer(newMux(r, 0, failConfig{}))
	defer srv.Close()

	c, err := client.New(client.Config{URL: srv.URL + "/api/trpc", QueryClient: client.QueryClientConfig{StaleTime: -1}})
	require.NoError(t, err)
	ctx := context.Background()

	var greeting struct {
		Text string `json:"text"`
	}
	require.NoError(t, c.Query(ctx, "greeting", map[string]string{"name": "ada"}, &greeting))
	assert.Equal(t, "hello ada", greeting.Text)

	var clock clockOutput
	require.NoError(t, c.Query(ctx, "clock", nil, &clock))
	assert.WithinDuration(t, time.Now(), clock.Now, time.Minute)

	var n int
	require.NoError(t, c.Mutation(ctx, "counter.add", map[string]int{"by": 2}, &n))
	require.NoError(t, c.Mutation(ctx, "counter.add", nil, &n))
	assert.Equal(t, 3, n)
	require.NoError(t, c.Query(ctx, "counter.get", nil, &n))
	assert.Equal(t, 3, n)

	err = c.Mutation(ctx, "counter.add", map[string]int{"by": 0}, nil)
	assert.ErrorIs(t, err, client.ErrBadRequest)
}

func TestFailureInjection(t *testing.T) {
	r := router.New(nil)
	registerDemo(r, newCounter())
	srv := httptest.NewServer(newMux(r, 0, failConfig{rate: 1, code: http.StatusServiceUnavailable}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/trpc/greeting")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
