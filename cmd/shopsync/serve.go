package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/mockapi"
	"github.com/noghresod/shopsync/trace"
)

type serveMockOptions struct {
	*rootOptions
	Addr string
}

func newServeMockCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveMockOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve an in-memory shop API for local development",
		Long: `Serve the in-memory shop API under /v1 with a seeded silver jewelry catalog.

Example:
  shopsync serve-mock --addr :8088`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeMock(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides mockapi.addr)")
	return cmd
}

func runServeMock(cmd *cobra.Command, opts *serveMockOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.loadConfig(ctx)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.MockAPI.Addr = opts.Addr
	}

	logger, err := opts.newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Flush()

	cfg.Trace.ServiceName = "shopsync-mockapi"
	tp, err := trace.Init(&cfg.Trace)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())

	meter, err := metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return err
	}
	defer meter.Shutdown(context.Background())

	srv, err := mockapi.New(&cfg.MockAPI,
		mockapi.WithLogger(logger),
		mockapi.WithMeter(meter),
		mockapi.WithTracerProvider(tp.TracerProvider()))
	if err != nil {
		return err
	}
	defer srv.Close()

	return srv.Run(ctx)
}
