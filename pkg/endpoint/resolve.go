package endpoint

import (
	"net/http"
	"runtime"
	"strconv"
)

const (
	// RPCPath is the mount point of the tRPC handler.
	RPCPath = "/api/trpc"
	// DefaultPort is used for local development when PORT is unset.
	DefaultPort uint16 = 3000

	// HeaderSSR marks calls issued while rendering on the server.
	HeaderSSR = "X-Ssr"
	// HeaderConnection is hop-by-hop and must not be forwarded.
	HeaderConnection = "Connection"

	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Runtime describes the execution context the client is configured for. An
// empty DeploymentHost and a zero Port mean "unset".
type Runtime struct {
	IsBrowser      bool
	DeploymentHost string
	Port           uint16
	Environment    string
}

// Development reports whether the runtime targets a development environment.
func (rt Runtime) Development() bool {
	return rt.Environment == EnvironmentDevelopment
}

// DetectBrowser reports whether the binary runs inside a browser, which for Go
// means a js/wasm build.
func DetectBrowser() bool {
	return runtime.GOOS == "js"
}

// ResolveBaseURL returns the base URL of the application for rt.
func ResolveBaseURL(rt Runtime) string {
	if rt.IsBrowser {
		return ""
	}
	if rt.DeploymentHost != "" {
		return "https://" + rt.DeploymentHost
	}
	port := rt.Port
	if port == 0 {
		port = DefaultPort
	}
	return "http://localhost:" + strconv.FormatUint(uint64(port), 10)
}

// RPCURL returns the tRPC endpoint for rt.
func RPCURL(rt Runtime) string {
	return ResolveBaseURL(rt) + RPCPath
}

// ForwardHeaders derives the outbound headers of a server-rendered call from
// the inbound request. The inbound headers are copied, never modified; the
// Connection header is dropped and X-Ssr: 1 is added. A nil request (a call
// made from the client side) yields an empty header set.
func ForwardHeaders(inbound *http.Request) http.Header {
	if inbound == nil {
		return make(http.Header)
	}
	out := inbound.Header.Clone()
	if out == nil {
		out = make(http.Header)
	}
	out.Del(HeaderConnection)
	out.Set(HeaderSSR, "1")
	return out
}
