package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
)

func newResolveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the base URL, RPC URL and runtime mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := opts.env.Runtime()
			rpcURL := endpoint.RPCURL(rt)
			if opts.url != "" {
				rpcURL = opts.url
			}
			base := endpoint.ResolveBaseURL(rt)
			if base == "" {
				base = styleMeta.Render("(relative)")
			} else {
				base = styleURL.Render(base)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, field("base URL", base))
			fmt.Fprintln(out, field("RPC URL", styleURL.Render(rpcURL)))
			fmt.Fprintln(out, field("mode", opts.env.Mode))
			fmt.Fprintln(out, field("environment", opts.env.Environment))
			fmt.Fprintln(out, field("browser", strconv.FormatBool(rt.IsBrowser)))
			return nil
		},
	}
}
