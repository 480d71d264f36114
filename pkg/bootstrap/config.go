package bootstrap

import (
	"context"
	"log"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/Ratio1/trpc_client_go/pkg/client"
	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
	"github.com/Ratio1/trpc_client_go/pkg/link"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

type settings struct {
	logger      *log.Logger
	tracer      trace.Tracer
	terminating link.Link
	httpClient  *http.Client
}

// Option customises the configuration built by NewConfig.
type Option func(*settings)

// WithLogger sends the logger link output to l.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithTracing adds a tracing link right after the logger link.
func WithTracing(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// WithTerminatingLink replaces the batching HTTP link, e.g. with an
// in-process router in mock mode.
func WithTerminatingLink(l link.Link) Option {
	return func(s *settings) {
		s.terminating = l
	}
}

// WithHTTPClient sets the HTTP client of the batching link.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// NewConfig returns the client configuration for rt. inbound is the request
// being rendered on the server, or nil for calls made from the browser.
func NewConfig(rt endpoint.Runtime, inbound *http.Request, opts ...Option) client.Config {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	url := endpoint.RPCURL(rt)
	headers := func(context.Context) http.Header {
		return endpoint.ForwardHeaders(inbound)
	}

	links := []link.Link{
		link.Logger(link.LoggerOptions{
			Enabled: link.DefaultLogEnabled(rt.Development()),
			Logger:  s.logger,
		}),
	}
	if s.tracer != nil {
		links = append(links, link.Tracing(s.tracer))
	}
	terminating := s.terminating
	if terminating == nil {
		terminating = link.HTTPBatch(link.HTTPBatchOptions{
			URL:         url,
			Headers:     headers,
			Transformer: superjson.SuperJSON,
			Client:      s.httpClient,
		})
	}
	links = append(links, terminating)

	return client.Config{
		Links:       links,
		URL:         url,
		Transformer: superjson.SuperJSON,
		Headers:     headers,
		SSR:         false,
		Server:      !rt.IsBrowser,
		QueryClient: client.QueryClientConfig{StaleTime: client.DefaultStaleTime},
	}
}

// New builds a client from NewConfig.
func New(rt endpoint.Runtime, inbound *http.Request, opts ...Option) (*client.Client, error) {
	return client.New(NewConfig(rt, inbound, opts...))
}
