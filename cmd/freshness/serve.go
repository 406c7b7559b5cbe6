package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericselin/freshness"
	"github.com/ericselin/freshness/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *cliOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the products endpoint and the catalog pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listen := opts.config.Listen
			if port > 0 {
				listen = fmt.Sprintf(":%d", port)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, listen)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides the configured listen address)")
	return cmd
}

func serve(ctx context.Context, opts *cliOptions, listen string) error {
	backend, err := opts.backend()
	if err != nil {
		return err
	}
	source := opts.pageSource(backend)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	resolver := freshness.New(freshness.Config{
		Logger:  &log.Logger,
		Metrics: freshness.NewMetrics(registry),
	})
	process := freshness.NewProcessScope()

	srv := &http.Server{
		Handler: server.New(server.Config{
			Resolver: resolver,
			Backend:  backend,
			Source:   source,
			Process:  process,
			Logger:   &log.Logger,
			Metrics:  registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// listen before warming, the origin may be this very server
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	log.Info().Str("listen", ln.Addr().String()).Str("origin", opts.config.Origin).Msg("Serving catalog")

	if _, err := resolver.Warm(ctx, source, process); err != nil {
		log.Warn().Err(err).Msg("Frozen catalog not initialized before shutdown")
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
