package auth

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

type resultKey struct{}

// ResultFromContext returns the Result stored by Middleware.
func ResultFromContext(ctx context.Context) (*Result, bool) {
	res, ok := ctx.Value(resultKey{}).(*Result)
	return res, ok
}

// MiddlewareConfig configures the authentication middleware.
type MiddlewareConfig struct {
	// IdentityVar names the route variable holding the claimed identity.
	// Defaults to "aid".
	IdentityVar string

	// OnError is called when authentication fails. When nil, WriteError is
	// used.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware returns a mux.MiddlewareFunc that authenticates each request
// for the identity in its route variables and stores the Result in the
// request context.
func (e *Engine) Middleware(cfg MiddlewareConfig) mux.MiddlewareFunc {
	identityVar := cfg.IdentityVar
	if identityVar == "" {
		identityVar = "aid"
	}

	onError := cfg.OnError
	if onError == nil {
		onError = WriteError
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := e.Authenticate(r, mux.Vars(r)[identityVar])
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resultKey{}, res)))
		})
	}
}

// WriteError writes err as a JSON response with its mapped status.
func WriteError(w http.ResponseWriter, _ *http.Request, err error) {
	ae := AsError(err)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(ae.Status)
	_, _ = w.Write(ae.ResponseBody())
}
