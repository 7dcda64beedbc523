package muxhandlers

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives panic reports when the request context carries no
	// logger of its own.
	Logger zerolog.Logger

	// PrintStack adds the goroutine stack to the panic report.
	PrintStack bool
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers, logs them and answers 500 with a JSON body.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				event := loggerFor(r, &cfg.Logger).Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path)

				if cfg.PrintStack {
					event = event.Bytes("stack", debug.Stack())
				}

				event.Msg("recovered from panic")

				writeJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
