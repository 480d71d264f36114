package link_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Ratio1/trpc_client_go/pkg/link"
)

func echo(data string) link.Link {
	return link.Terminating(func(ctx context.Context, op *link.Operation) link.Result {
		return link.Result{Data: []byte(data)}
	})
}

func fail(err error) link.Link {
	return link.Terminating(func(ctx context.Context, op *link.Operation) link.Result {
		return link.Result{Err: err}
	})
}

func TestChainOrder(t *testing.T) {
	var trail []string
	mark := func(name string) link.Link {
		return func(next link.Handler) link.Handler {
			return func(ctx context.Context, op *link.Operation) link.Result {
				trail = append(trail, name+">")
				res := next(ctx, op)
				trail = append(trail, "<"+name)
				return res
			}
		}
	}

	h := link.Chain(mark("a"), mark("b"), echo(`{"json":1}`))
	res := h(context.Background(), &link.Operation{ID: 1, Type: link.Query, Path: "p"})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"a>", "b>", "<b", "<a"}, trail)
}

func TestChainWithoutTerminatingLink(t *testing.T) {
	res := link.Chain()(context.Background(), &link.Operation{Type: link.Query})
	assert.ErrorIs(t, res.Err, link.ErrNoTerminatingLink)
}

func TestDefaultLogEnabled(t *testing.T) {
	op := &link.Operation{ID: 1, Type: link.Query, Path: "p"}
	ok := link.Result{Data: []byte(`{}`)}
	bad := link.Result{Err: errors.New("down")}

	up := link.Event{Direction: link.Up, Op: op}
	downOK := link.Event{Direction: link.Down, Op: op, Result: &ok}
	downBad := link.Event{Direction: link.Down, Op: op, Result: &bad}

	dev := link.DefaultLogEnabled(true)
	assert.True(t, dev(up))
	assert.True(t, dev(downOK))
	assert.True(t, dev(downBad))

	prod := link.DefaultLogEnabled(false)
	assert.False(t, prod(up))
	assert.False(t, prod(downOK))
	assert.True(t, prod(downBad))
}

func TestLoggerDevelopment(t *testing.T) {
	var buf bytes.Buffer
	h := link.Chain(
		link.Logger(link.LoggerOptions{
			Enabled: link.DefaultLogEnabled(true),
			Logger:  log.New(&buf, "", 0),
		}),
		echo(`{"json":"hi"}`),
	)

	res := h(context.Background(), &link.Operation{ID: 7, Type: link.Query, Path: "greeting", Input: map[string]string{"name": "ada"}})
	require.NoError(t, res.Err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], ">> query #7")
	assert.Contains(t, lines[0], `greeting input={"name":"ada"}`)
	assert.Contains(t, lines[1], "<< query #7")
	assert.Contains(t, lines[1], `result={"json":"hi"}`)
}

func TestLoggerProductionOnlyLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := link.Logger(link.LoggerOptions{Logger: log.New(&buf, "", 0)})

	res := link.Chain(logger, echo(`{"json":1}`))(context.Background(), &link.Operation{ID: 1, Type: link.Mutation, Path: "ok"})
	require.NoError(t, res.Err)
	assert.Empty(t, buf.String())

	res = link.Chain(logger, fail(errors.New("unreachable")))(context.Background(), &link.Operation{ID: 2, Type: link.Mutation, Path: "broken"})
	require.Error(t, res.Err)
	assert.Contains(t, buf.String(), "<< mutation #2")
	assert.Contains(t, buf.String(), "error=unreachable")
	assert.NotContains(t, buf.String(), ">>")
}

func TestTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	h := link.Chain(link.Tracing(tp.Tracer("test")), fail(errors.New("boom")))
	res := h(context.Background(), &link.Operation{ID: 3, Type: link.Query, Path: "clock"})
	require.Error(t, res.Err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "trpc.query clock", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestRemoteErrorIs(t *testing.T) {
	err := &link.RemoteError{Message: "missing", DataCode: "NOT_FOUND", Path: "user.byId"}
	assert.ErrorIs(t, err, &link.RemoteError{DataCode: "NOT_FOUND"})
	assert.NotErrorIs(t, err, &link.RemoteError{DataCode: "BAD_REQUEST"})
	assert.Equal(t, "trpc: user.byId: missing (NOT_FOUND)", err.Error())
}
