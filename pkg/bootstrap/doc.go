// Package bootstrap assembles a client the way a server-rendered web
// application configures its RPC client: it resolves the endpoint from the
// runtime, installs the logger and batching links, selects superjson, and
// forwards the inbound request headers of a server render. It also provides
// the HTTP middleware that makes the colour scheme, the session and a
// per-request client available to page handlers.
package bootstrap
