package main

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
)

type options struct {
	url          string
	dev          bool
	timeout      time.Duration
	otelEndpoint string
	env          endpoint.Env
	tracer       trace.Tracer
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "trpcctl",
		Short: "Call tRPC procedures from the terminal",
		Long: `trpcctl resolves the tRPC endpoint the way the web application does
(VERCEL_URL, PORT, TRPC_RUNTIME_MODE) and issues batched calls against it.

Use --url to target an explicit endpoint instead.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := endpoint.LoadEnv()
			if err != nil {
				return err
			}
			if opts.dev {
				e.Environment = endpoint.EnvironmentDevelopment
			}
			opts.env = e
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.url, "url", "", "tRPC endpoint (default: resolved from the environment)")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "log every call like a development build")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-call timeout")
	root.PersistentFlags().StringVar(&opts.otelEndpoint, "otel-endpoint", os.Getenv("TRPC_OTEL_ENDPOINT"), "OTLP/HTTP collector URL for call spans")

	root.AddCommand(
		newResolveCmd(opts),
		newCallCmd(opts, callQuery),
		newCallCmd(opts, callMutation),
	)
	return root
}

func (o *options) logger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}
