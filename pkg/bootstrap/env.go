package bootstrap

import (
	"fmt"

	"github.com/Ratio1/trpc_client_go/internal/devseed"
	"github.com/Ratio1/trpc_client_go/pkg/client"
	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
	"github.com/Ratio1/trpc_client_go/pkg/router"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

// NewFromEnv initialises a client from the process environment and returns
// the resolved mode ("http" or "mock"). TRPC_RUNTIME_MODE=mock serves calls
// from an in-process router seeded from TRPC_MOCK_SEED; auto and http use
// the batching HTTP link.
func NewFromEnv(opts ...Option) (c *client.Client, mode string, err error) {
	e, err := endpoint.LoadEnv()
	if err != nil {
		return nil, "", fmt.Errorf("bootstrap: %w", err)
	}
	rt := e.Runtime()

	switch e.Mode {
	case endpoint.ModeAuto, endpoint.ModeHTTP:
		return newHTTPClient(rt, opts)
	case endpoint.ModeMock:
		c, err := NewSeededMock(rt, e.MockSeed, opts...)
		if err != nil {
			return nil, "", err
		}
		return c, endpoint.ModeMock, nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unsupported runtime mode %q", e.Mode)
	}
}

func newHTTPClient(rt endpoint.Runtime, opts []Option) (*client.Client, string, error) {
	c, err := New(rt, nil, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("bootstrap: init HTTP client: %w", err)
	}
	return c, endpoint.ModeHTTP, nil
}

// NewSeededMock builds a mock client over a router holding the procedures of
// the seed file at seedPath. An empty path yields a router with none.
func NewSeededMock(rt endpoint.Runtime, seedPath string, opts ...Option) (*client.Client, error) {
	r := router.New(superjson.SuperJSON)
	if seedPath != "" {
		entries, err := devseed.LoadProcedureSeed(seedPath)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load mock seed: %w", err)
		}
		if err := r.Seed(entries); err != nil {
			return nil, fmt.Errorf("bootstrap: apply mock seed: %w", err)
		}
	}
	c, err := NewMock(rt, r, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: init mock client: %w", err)
	}
	return c, nil
}

// NewMock builds a client whose calls are served by r in-process.
func NewMock(rt endpoint.Runtime, r *router.Router, opts ...Option) (*client.Client, error) {
	opts = append(opts[:len(opts):len(opts)], WithTerminatingLink(r.Link()))
	return New(rt, nil, opts...)
}
