package bootstrap

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/Ratio1/trpc_client_go/pkg/client"
	"github.com/Ratio1/trpc_client_go/pkg/endpoint"
)

// Decorator wraps a page handler with one provider.
type Decorator func(http.Handler) http.Handler

// Pipeline wraps h with decorators; the first decorator is the outermost.
func Pipeline(h http.Handler, decorators ...Decorator) http.Handler {
	for i := len(decorators) - 1; i >= 0; i-- {
		if decorators[i] == nil {
			continue
		}
		h = decorators[i](h)
	}
	return h
}

// ThemeMode is the palette mode of a page.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// HeaderPrefersColorScheme is the client hint carrying the preferred colour
// scheme.
const HeaderPrefersColorScheme = "Sec-CH-Prefers-Color-Scheme"

// Theme is the palette chosen for a request.
type Theme struct {
	Mode ThemeMode
}

// Session is an opaque authentication session passed through to pages.
type Session = any

type ctxKey int

const (
	themeKey ctxKey = iota
	sessionKey
	clientKey
)

// ColorScheme asks browsers for the colour-scheme client hint and stores the
// resulting Theme in the request context. Requests without the hint get the
// light theme.
func ColorScheme() Decorator {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Accept-CH", HeaderPrefersColorScheme)
			w.Header().Add("Vary", HeaderPrefersColorScheme)

			theme := Theme{Mode: ThemeLight}
			hint := strings.Trim(strings.TrimSpace(r.Header.Get(HeaderPrefersColorScheme)), `"`)
			if strings.EqualFold(hint, string(ThemeDark)) {
				theme.Mode = ThemeDark
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), themeKey, theme)))
		})
	}
}

// ThemeFromContext returns the stored Theme, light when none is stored.
func ThemeFromContext(ctx context.Context) Theme {
	if t, ok := ctx.Value(themeKey).(Theme); ok {
		return t
	}
	return Theme{Mode: ThemeLight}
}

// SessionProvider stores the session returned by load. A nil loader or a nil
// session stores nil.
func SessionProvider(load func(*http.Request) Session) Decorator {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s Session
			if load != nil {
				s = load(r)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sessionBox{s})))
		})
	}
}

// sessionBox lets a nil session be stored and told apart from "no provider".
type sessionBox struct{ s Session }

// SessionFromContext returns the stored session and whether a provider ran.
func SessionFromContext(ctx context.Context) (Session, bool) {
	b, ok := ctx.Value(sessionKey).(sessionBox)
	return b.s, ok
}

// ClientProvider builds a client for every request, configured to forward
// that request's headers, and stores it in the request context.
func ClientProvider(rt endpoint.Runtime, opts ...Option) Decorator {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := New(rt, r, opts...)
			if err != nil {
				log.Printf("bootstrap: build client: %v", err)
				http.Error(w, "client unavailable", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey, c)))
		})
	}
}

// ClientFromContext returns the client stored by ClientProvider.
func ClientFromContext(ctx context.Context) (*client.Client, bool) {
	c, ok := ctx.Value(clientKey).(*client.Client)
	return c, ok
}

// Layout wraps pages with fn; a nil fn leaves pages as they are.
func Layout(fn Decorator) Decorator {
	if fn == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return fn
}
