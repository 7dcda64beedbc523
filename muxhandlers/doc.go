// Package muxhandlers provides HTTP middleware for gorilla/mux routers.
//
// Every constructor takes a XxxConfig struct and returns a
// mux.MiddlewareFunc, plus an error when the configuration can be invalid.
//
// # Request ID
//
// RequestIDMiddleware propagates X-Request-ID and attaches a zerolog
// logger carrying the request_id field to the request context. Handlers
// retrieve it with zerolog.Ctx.
//
//	r.Use(muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{
//	    Logger: logger,
//	}))
//
// # Access Log and Metrics
//
// AccessLogMiddleware writes one log line per request. MetricsMiddleware
// counts requests and observes latency labelled by route template, so
// identifiers in the path never become label values.
//
//	mw, err := muxhandlers.MetricsMiddleware(muxhandlers.MetricsConfig{
//	    Registerer: reg,
//	    Namespace:  "regps",
//	})
//	if err != nil {
//	    return err
//	}
//	r.Use(mw)
//
// # Recovery
//
// RecoveryMiddleware turns handler panics into a 500 JSON response and
// logs the panic value. http.ErrAbortHandler is re-panicked.
//
// # CORS
//
// CORSMiddleware answers preflight requests and exposes the signify
// signature headers to browser clients. It hooks the router's
// MethodNotAllowedHandler so routes need not register OPTIONS.
//
//	mw, err := muxhandlers.CORSMiddleware(r, muxhandlers.CORSConfig{
//	    AllowedOrigins: []string{"*"},
//	    MaxAge:         600,
//	})
//
// # Request Size Limit
//
// RequestSizeLimitMiddleware rejects bodies larger than the configured
// limit with 413.
package muxhandlers
