// Package endpoint resolves where the tRPC endpoint lives for the current
// execution context and derives the headers a server-rendered call forwards
// upstream.
//
// The resolution policy is:
//
//   - in a browser the base URL is "" and requests are relative to the page
//     origin;
//   - on a server with a deployment host (VERCEL_URL) it is https://<host>;
//   - otherwise it is http://localhost:<PORT>, with PORT defaulting to 3000.
//
// Runtime values are plain data so the resolver can be exercised without
// touching the process environment; FromEnv builds one from the environment.
package endpoint
