// Package router is an in-process procedure router speaking the tRPC v9 HTTP
// batch wire format. It backs the mock runtime mode, the sandbox server and
// the tests of the HTTP links; it is not meant to be a production RPC server.
//
// Procedures are registered by dotted path:
//
//	r := router.New(superjson.SuperJSON)
//	r.Query("greeting", func(ctx context.Context, req router.Request) (any, error) {
//		var in struct{ Name string `json:"name"` }
//		if err := req.Decode(&in); err != nil {
//			return nil, err
//		}
//		return "hello " + in.Name, nil
//	})
//	http.Handle("/api/trpc/", http.StripPrefix("/api/trpc", r))
//
// Link returns a terminating link that calls the same procedures without a
// network round trip.
package router
