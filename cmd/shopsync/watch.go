package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/internal/app"
)

type watchOptions struct {
	*rootOptions
	Interval time.Duration
}

func newWatchCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &watchOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the local cache synchronized until interrupted",
		Long: `Run a sync round every --interval and the cache maintenance jobs
(expired entry cleanup, LRU eviction, breaker reports) until SIGINT or SIGTERM.

Example:
  shopsync watch --interval 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Interval <= 0 {
				return fmt.Errorf("invalid interval %s: must be positive", opts.Interval)
			}
			return runWatch(cmd, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Minute, "time between sync rounds")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.loadConfig(ctx)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	logger := a.Logger.WithNamespace("watch")
	a.Janitor.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Janitor.Stop(stopCtx); err != nil {
			logger.Warn("janitor stop timed out", clog.Error(err))
		}
	}()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		for _, r := range a.Repository.SyncAll(ctx, false) {
			logger.Debug("resource synced",
				clog.String("key", r.Key),
				clog.String("source", r.Source.String()),
				clog.Int("items", r.Items),
				clog.Duration("took", r.Duration))
		}

		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}
