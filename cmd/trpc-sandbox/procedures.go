package main

import (
	"context"
	"sync"
	"time"

	"github.com/Ratio1/trpc_client_go/pkg/router"
)

type counter struct {
	mu    sync.Mutex
	value int
}

func newCounter() *counter { return &counter{} }

func (c *counter) add(by int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += by
	return c.value
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

type clockOutput struct {
	Now  time.Time `json:"now"`
	Zone string    `json:"zone"`
}

func registerDemo(r *router.Router, c *counter) {
	r.Query("greeting", func(ctx context.Context, req router.Request) (any, error) {
		var in struct {
			Name string `json:"name"`
		}
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		if in.Name == "" {
			in.Name = "stranger"
		}
		return map[string]any{"text": "hello " + in.Name, "ssr": req.SSR}, nil
	})
	r.Query("clock", func(ctx context.Context, req router.Request) (any, error) {
		now := time.Now()
		zone, _ := now.Zone()
		return clockOutput{Now: now, Zone: zone}, nil
	})
	r.Query("counter.get", func(ctx context.Context, req router.Request) (any, error) {
		return c.get(), nil
	})
	r.Mutation("counter.add", func(ctx context.Context, req router.Request) (any, error) {
		in := struct {
			By *int `json:"by"`
		}{}
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		by := 1
		if in.By != nil {
			by = *in.By
		}
		if by == 0 {
			return nil, router.NewError(router.CodeBadRequest, "by must not be zero")
		}
		return c.add(by), nil
	})
}
