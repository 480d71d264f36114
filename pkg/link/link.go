// Package link implements the chain of transport stages a procedure call
// travels through: observing links (logger, tracing) wrap a terminating
// link (HTTP batch, HTTP, or an in-process router) that produces the result.
package link

import (
	"context"
	"encoding/json"
	"errors"
)

// OpType is the kind of procedure being called.
type OpType string

const (
	Query        OpType = "query"
	Mutation     OpType = "mutation"
	Subscription OpType = "subscription"
)

var (
	// ErrNoTerminatingLink is returned when the chain ends without a link
	// producing a result.
	ErrNoTerminatingLink = errors.New("link: chain has no terminating link")
	// ErrSubscriptionUnsupported is returned by HTTP links for subscriptions.
	ErrSubscriptionUnsupported = errors.New("link: subscriptions are not supported over HTTP")
)

// Operation is a single procedure call.
type Operation struct {
	ID    int64
	Type  OpType
	Path  string
	Input any
}

// Result is the outcome of an operation. Data holds the transformer-encoded
// payload returned by the server.
type Result struct {
	Data json.RawMessage
	Err  error
}

// Handler runs an operation.
type Handler func(ctx context.Context, op *Operation) Result

// Link wraps the next handler in the chain. Terminating links ignore next.
type Link func(next Handler) Handler

// Chain composes links so that the first one is outermost.
func Chain(links ...Link) Handler {
	var h Handler = func(context.Context, *Operation) Result {
		return Result{Err: ErrNoTerminatingLink}
	}
	for i := len(links) - 1; i >= 0; i-- {
		if links[i] == nil {
			continue
		}
		h = links[i](h)
	}
	return h
}

// Terminating adapts a handler into a link that never calls next.
func Terminating(h Handler) Link {
	return func(Handler) Handler {
		return h
	}
}
