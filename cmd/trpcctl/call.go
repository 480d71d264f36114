package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ratio1/trpc_client_go/pkg/bootstrap"
	"github.com/Ratio1/trpc_client_go/pkg/client"
	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
	"github.com/Ratio1/trpc_client_go/pkg/link"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

type callKind struct {
	use   string
	short string
	typ   link.OpType
}

var (
	callQuery    = callKind{use: "query <path>", short: "Run a query procedure", typ: link.Query}
	callMutation = callKind{use: "mutate <path>", short: "Run a mutation procedure", typ: link.Mutation}
)

func newCallCmd(opts *options, kind callKind) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   kind.use,
		Short: kind.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			in, err := parseInput(input)
			if err != nil {
				return err
			}
			tracer, shutdown, err := setupTracing(cmd.Context(), opts.otelEndpoint)
			if err != nil {
				return fmt.Errorf("set up tracing: %w", err)
			}
			defer func() { _ = shutdown(context.Background()) }()
			opts.tracer = tracer

			c, mode, err := opts.client()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var out json.RawMessage
			if kind.typ == link.Query {
				err = c.Query(ctx, path, in, &out)
			} else {
				err = c.Mutation(ctx, path, in, &out)
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), failure(describe(err)))
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), success(fmt.Sprintf("%s %s", kind.typ, path))+" "+styleMeta.Render("("+mode+")"))
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "procedure input as JSON")
	return cmd
}

func (o *options) client() (*client.Client, string, error) {
	rt := o.env.Runtime()
	if o.url == "" {
		if o.env.Mode == endpoint.ModeMock {
			return o.mockClient(rt)
		}
		c, err := bootstrap.New(rt, nil, o.bootstrapOptions()...)
		return c, endpoint.ModeHTTP, err
	}
	links := []link.Link{
		link.Logger(link.LoggerOptions{
			Enabled: link.DefaultLogEnabled(rt.Development()),
			Logger:  o.logger(),
		}),
	}
	if o.tracer != nil {
		links = append(links, link.Tracing(o.tracer))
	}
	links = append(links, link.HTTPBatch(link.HTTPBatchOptions{URL: o.url}))
	c, err := client.New(client.Config{
		URL:         o.url,
		Transformer: superjson.SuperJSON,
		Links:       links,
	})
	return c, endpoint.ModeHTTP, err
}

func (o *options) bootstrapOptions() []bootstrap.Option {
	opts := []bootstrap.Option{bootstrap.WithLogger(o.logger())}
	if o.tracer != nil {
		opts = append(opts, bootstrap.WithTracing(o.tracer))
	}
	return opts
}

// mockClient serves calls from the TRPC_MOCK_SEED procedures.
func (o *options) mockClient(rt endpoint.Runtime) (*client.Client, string, error) {
	c, err := bootstrap.NewSeededMock(rt, o.env.MockSeed, o.bootstrapOptions()...)
	return c, endpoint.ModeMock, err
}

func parseInput(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("--input is not valid JSON: %w", err)
	}
	return v, nil
}

func describe(err error) string {
	var remote *client.Error
	if errors.As(err, &remote) {
		return fmt.Sprintf("%s %s: %s", remote.DataCode, remote.Path, remote.Message)
	}
	return err.Error()
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var buf bytes.Buffer
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}
