// Command trpc-sandbox serves demo tRPC procedures on /api/trpc for local
// development against the client.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ratio1/trpc_client_go/internal/devseed"
	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
	"github.com/Ratio1/trpc_client_go/pkg/router"
	"github.com/Ratio1/trpc_client_go/pkg/superjson"
)

type failConfig struct {
	rate float64
	code int
}

func main() {
	addr := flag.String("addr", ":3000", "listen address")
	seed := flag.String("seed", "", "path to JSON seed of static query procedures")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	flag.Parse()

	r := router.New(superjson.SuperJSON)
	registerDemo(r, newCounter())
	if *seed != "" {
		entries, err := devseed.LoadProcedureSeed(*seed)
		if err != nil {
			log.Fatalf("load seed: %v", err)
		}
		if err := r.Seed(entries); err != nil {
			log.Fatalf("apply seed: %v", err)
		}
	}

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		log.Fatalf("parse fail flag: %v", err)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           newMux(r, *latency, failCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("trpc-sandbox listening on %s (%s)", *addr, strings.Join(r.Procedures(), ", "))
	fmt.Println()
	for _, line := range exports(*addr) {
		fmt.Println(line)
	}
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func newMux(r *router.Router, latency time.Duration, failCfg failConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(endpoint.RPCPath+"/", withMiddleware(latency, failCfg, http.StripPrefix(endpoint.RPCPath, r)))
	return mux
}

// exports returns the shell lines pointing a client at addr.
func exports(addr string) []string {
	port := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		port = addr[i+1:]
	}
	return []string{
		"export TRPC_RUNTIME_MODE=http",
		"unset VERCEL_URL",
		"export PORT=" + port,
	}
}

func withMiddleware(delay time.Duration, failCfg failConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("exec %s %s ssr=%t", r.Method, r.URL.Path, r.Header.Get(endpoint.HeaderSSR) == "1")
		if delay > 0 {
			time.Sleep(delay)
		}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			http.Error(w, "failure injected", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	parts := strings.Split(raw, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return failConfig{}, err
			}
			if val < 0 || val > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0,1]", val)
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = val
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
