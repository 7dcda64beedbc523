package muxhandlers

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// ErrWildcardCredentials is returned when AllowedOrigins contains "*" and
// AllowCredentials is true.
var ErrWildcardCredentials = errors.New("wildcard origin \"*\" cannot be used with AllowCredentials")

// DefaultExposeHeaders are the response headers signify browser clients
// need to read.
var DefaultExposeHeaders = []string{
	"cesr-attachment",
	"cesr-date",
	"content-type",
	"signature",
	"signature-input",
	"signify-resource",
	"signify-timestamp",
}

// CORSConfig configures the CORS middleware behaviour.
type CORSConfig struct {
	// AllowedOrigins is a list of exact origins or "*".
	AllowedOrigins []string

	// AllowedMethods overrides the methods advertised on preflight. When
	// empty the methods registered on the router for the path are used.
	AllowedMethods []string

	// AllowedHeaders lists the request headers a client may send. When
	// empty the Access-Control-Request-Headers value is reflected.
	AllowedHeaders []string

	// ExposeHeaders lists the headers the browser may expose to client
	// code. Defaults to DefaultExposeHeaders.
	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials: true.
	AllowCredentials bool

	// MaxAge is the number of seconds a preflight result may be cached.
	// Zero omits the header.
	MaxAge int
}

// CORSMiddleware returns a middleware that answers CORS preflight requests
// with 204 and decorates actual responses with the allow and expose
// headers.
//
// Router middleware only runs for matched routes, so the router's
// MethodNotAllowedHandler is wrapped to answer preflight OPTIONS requests
// for routes that do not register OPTIONS themselves.
func CORSMiddleware(r *mux.Router, cfg CORSConfig) (mux.MiddlewareFunc, error) {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	if wildcard && cfg.AllowCredentials {
		return nil, ErrWildcardCredentials
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins = append(origins, strings.ToLower(o))
	}

	expose := cfg.ExposeHeaders
	if len(expose) == 0 {
		expose = DefaultExposeHeaders
	}

	allowed := func(origin string) bool {
		return wildcard || slices.Contains(origins, strings.ToLower(origin))
	}

	setOrigin := func(w http.ResponseWriter, origin string) {
		if wildcard {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		if cfg.AllowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
	}

	preflight := func(w http.ResponseWriter, req *http.Request) {
		methods := cfg.AllowedMethods
		if len(methods) == 0 {
			methods = routeMethods(r, req)
		}

		if len(methods) > 0 {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ","))
		}

		if len(cfg.AllowedHeaders) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ","))
		} else if h := req.Header.Get("Access-Control-Request-Headers"); h != "" {
			w.Header().Set("Access-Control-Allow-Headers", h)
		}

		if cfg.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		w.Header().Add("Vary", "Access-Control-Request-Method")
		w.Header().Add("Vary", "Access-Control-Request-Headers")
		w.WriteHeader(http.StatusNoContent)
	}

	isPreflight := func(req *http.Request) bool {
		return req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != ""
	}

	prev := r.MethodNotAllowedHandler
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if origin := req.Header.Get("Origin"); origin != "" && allowed(origin) && isPreflight(req) {
			setOrigin(w, origin)
			preflight(w, req)

			return
		}

		if prev != nil {
			prev.ServeHTTP(w, req)
			return
		}

		writeJSONError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			origin := req.Header.Get("Origin")
			if origin == "" || !allowed(origin) {
				next.ServeHTTP(w, req)
				return
			}

			setOrigin(w, origin)

			if isPreflight(req) {
				preflight(w, req)
				return
			}

			w.Header().Set("Access-Control-Expose-Headers", strings.Join(expose, ","))
			next.ServeHTTP(w, req)
		})
	}, nil
}

// routeMethods returns the methods registered for routes matching the
// request path.
func routeMethods(router *mux.Router, req *http.Request) []string {
	var methods []string

	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		registered, err := route.GetMethods()
		if err != nil {
			return nil
		}

		for _, method := range registered {
			probe := req.Clone(req.Context())
			probe.Method = method

			if route.Match(probe, &mux.RouteMatch{}) && !slices.Contains(methods, method) {
				methods = append(methods, method)
			}
		}

		return nil
	})

	return methods
}
