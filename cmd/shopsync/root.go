package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/internal/app"
)

// rootOptions 全局参数
type rootOptions struct {
	ConfigName string
	ConfigDirs []string
	Format     string // text | json
	Verbose    bool
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shopsync",
		Short: "Offline-first cache for the shop API",
		Long: `shopsync keeps a local SQLite copy of products, cart, orders and wishlist,
refreshing each resource according to its cache policy and falling back to
local data while the remote endpoint is unhealthy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigName, "config", "shopsync", "config file name without extension")
	cmd.PersistentFlags().StringSliceVar(&opts.ConfigDirs, "config-dir", []string{".", "./configs"}, "directories searched for the config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newServeMockCommand(opts))
	return cmd
}

// loadConfig 加载配置，--verbose 覆盖日志级别
func (o *rootOptions) loadConfig(ctx context.Context) (*app.Config, error) {
	cfg, err := app.Load(ctx, o.ConfigName, o.ConfigDirs, nil)
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func (o *rootOptions) newLogger(cfg *app.Config) (clog.Logger, error) {
	return clog.New(&cfg.Log, clog.WithNamespace(app.ServiceName))
}
