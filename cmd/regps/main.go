// Command regps runs the regulatory report submission portal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/ronakseth96/reg-pilot-api/config"
	"github.com/ronakseth96/reg-pilot-api/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "regps:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args, os.Getenv("REGPS_CONFIG"))
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}

// loadConfig parses the command line and loads the configuration. Flags
// take precedence over the file and the environment.
func loadConfig(args []string, defaultPath string) (config.Config, error) {
	fs := pflag.NewFlagSet("regps", pflag.ContinueOnError)

	path := fs.StringP("config", "c", defaultPath, "path to a YAML configuration file")
	addr := fs.String("http", "", "listen address, overrides http.addr")
	level := fs.String("log-level", "", "log level: trace, debug, info, warn, error")
	format := fs.String("log-format", "", "log format: json or console")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return cfg, err
	}

	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	if *level != "" {
		cfg.Log.Level = *level
	}

	if *format != "" {
		cfg.Log.Format = *format
	}

	return cfg, cfg.Validate()
}

// newLogger builds the root logger writing to w.
func newLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch cfg.Format {
	case config.LogFormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case config.LogFormatJSON, "":
	default:
		return zerolog.Nop(), errors.New("unknown log format " + cfg.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "regps").Logger(), nil
}
