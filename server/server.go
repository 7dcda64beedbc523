// Package server exposes the report submission portal over HTTP. Every
// identity-scoped route is authorized by the signed-request engine before
// the external verifier is involved.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ronakseth96/reg-pilot-api/auth"
	"github.com/ronakseth96/reg-pilot-api/config"
	"github.com/ronakseth96/reg-pilot-api/muxhandlers"
	"github.com/ronakseth96/reg-pilot-api/openapi"
	"github.com/ronakseth96/reg-pilot-api/registry"
	"github.com/ronakseth96/reg-pilot-api/verifier"
)

// Server wires the HTTP listener, the middleware chain and the handlers.
type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	router   *mux.Router
	http     *http.Server
	engine   *auth.Engine
	verifier *verifier.Client
}

type options struct {
	registry   *registry.Registry
	prometheus *prometheus.Registry
	httpClient *http.Client
}

// Option configures a Server.
type Option func(*options)

// WithRegistry shares reg with the server instead of a fresh one.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithPrometheus registers the server collectors with reg and serves it on
// /metrics.
func WithPrometheus(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.prometheus = reg
	}
}

// WithVerifierHTTPClient sets the HTTP client used to reach the verifier.
func WithVerifierHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// New constructs a Server from cfg.
func New(cfg config.Config, logger zerolog.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.registry == nil {
		o.registry = registry.New()
	}

	if o.prometheus == nil {
		o.prometheus = prometheus.NewRegistry()
		o.prometheus.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	verifierOpts := []verifier.Option{verifier.WithLogger(logger.With().Str("component", "verifier").Logger())}
	if o.httpClient != nil {
		verifierOpts = append(verifierOpts, verifier.WithHTTPClient(o.httpClient))
	}

	vc, err := verifier.New(cfg.Verifier, verifierOpts...)
	if err != nil {
		return nil, err
	}

	authMetrics, err := auth.NewMetrics(o.prometheus)
	if err != nil {
		return nil, err
	}

	engine := auth.New(vc, o.registry,
		auth.WithLogger(logger.With().Str("component", "auth").Logger()),
		auth.WithTimeout(cfg.Verifier.Timeout),
		auth.WithMetrics(authMetrics),
	)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		verifier: vc,
	}

	router, err := s.routes(o.prometheus)
	if err != nil {
		return nil, err
	}

	s.router = router
	s.http = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("listening")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) routes(reg *prometheus.Registry) (*mux.Router, error) {
	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	metrics, err := muxhandlers.MetricsMiddleware(muxhandlers.MetricsConfig{
		Registerer: reg,
		Namespace:  "regps",
	})
	if err != nil {
		return nil, err
	}

	sizeLimit, err := muxhandlers.RequestSizeLimitMiddleware(muxhandlers.RequestSizeLimitConfig{
		MaxBytes: s.cfg.HTTP.MaxUploadBytes,
	})
	if err != nil {
		return nil, err
	}

	r.Use(
		muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{Logger: s.logger}),
		muxhandlers.AccessLogMiddleware(muxhandlers.AccessLogConfig{
			Logger:    s.logger,
			SkipPaths: []string{"/ping", "/metrics"},
		}),
		metrics,
		muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{Logger: s.logger}),
	)

	if s.cfg.CORS.Enabled {
		cors, err := muxhandlers.CORSMiddleware(r, muxhandlers.CORSConfig{
			AllowedOrigins: s.cfg.CORS.AllowedOrigins,
			MaxAge:         s.cfg.CORS.MaxAge,
		})
		if err != nil {
			return nil, err
		}

		r.Use(cors)
	}

	r.Use(sizeLimit)

	signed := s.engine.Middleware(auth.MiddlewareConfig{})

	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	openapi.Handle(r, "/docs", apiDocument(), nil)

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/checklogin/{aid}", s.handleCheckLogin).Methods(http.MethodGet)

	r.Handle("/upload/{aid}/{dig}", signed(http.HandlerFunc(s.handleUpload))).Methods(http.MethodPost)
	r.HandleFunc("/upload/{aid}/{dig}", s.handleCheckUpload).Methods(http.MethodGet)

	r.Handle("/status/{aid}", signed(http.HandlerFunc(s.handleStatus))).Methods(http.MethodGet)
	r.Handle("/status/{aid}/drop", signed(http.HandlerFunc(s.handleDrop))).Methods(http.MethodPost)

	return r, nil
}
