package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/nodetree/internal/api"
	"github.com/roach88/nodetree/internal/observability"
	"github.com/roach88/nodetree/internal/service"
	"github.com/roach88/nodetree/internal/telemetry"
)

const (
	serviceName     = "nodetree"
	shutdownTimeout = 10 * time.Second
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Listener overrides Addr (for testing).
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Open the configured storage backend and serve the node API over HTTP.

The server shuts down gracefully on SIGINT or SIGTERM.

Example:
  nodetree serve --db ./nodetree.db --addr :3000
  nodetree serve --config ./nodetree.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides http.addr)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	logger := opts.Logger
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Exporter:       cfg.Telemetry.Tracing,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("error shutting down tracing", "error", err)
		}
	}()

	logger.Info("opening storage", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)
	backend, closeBackend, err := openBackend(cfg.Storage, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open storage", err)
	}
	defer func() {
		if closeErr := closeBackend(); closeErr != nil {
			logger.Error("error closing storage", "error", closeErr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	svc := service.New(backend,
		service.WithLogger(logger),
		service.WithMetrics(metrics),
		service.WithTracerProvider(otel.GetTracerProvider()),
	)
	router := api.NewRouter(svc, api.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		RateLimit:      cfg.HTTP.RateLimit,
		Burst:          cfg.HTTP.Burst,
		Metrics:        metrics,
		Gatherer:       registry,
		Logger:         logger,
		ServiceName:    serviceName,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if opts.Listener != nil {
			logger.Info("server listening", "addr", opts.Listener.Addr().String())
			err = srv.Serve(opts.Listener)
		} else {
			logger.Info("server listening", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", serveAddr(opts, srv))
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func serveAddr(opts *ServeOptions, srv *http.Server) string {
	if opts.Listener != nil {
		return opts.Listener.Addr().String()
	}
	return srv.Addr
}
