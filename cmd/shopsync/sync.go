package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noghresod/shopsync/internal/app"
	"github.com/noghresod/shopsync/repository"
)

type syncOptions struct {
	*rootOptions
	Force bool
}

func newSyncCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &syncOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize all resources once",
		Long: `Synchronize products, cart, orders and wishlist once and print a report.

Fresh resources are served from the local cache unless --force is given.
The command exits non-zero when any resource failed to refresh.

Example:
  shopsync sync
  shopsync sync --force --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "refresh even when the local copy is fresh")
	return cmd
}

func runSync(cmd *cobra.Command, opts *syncOptions) error {
	ctx := cmd.Context()
	cfg, err := opts.loadConfig(ctx)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.WithRepositoryOptions(repository.WithErrorEmission()))
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	reports := a.Repository.SyncAll(ctx, opts.Force)
	if err := writeReports(cmd.OutOrStdout(), opts.Format, reports); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d resources failed to sync", failed, len(reports))
	}
	return nil
}

// reportView 报告的输出形式
type reportView struct {
	Key      string `json:"key"`
	Source   string `json:"source"`
	Items    int    `json:"items"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

func toView(r repository.Report) reportView {
	v := reportView{
		Key:      r.Key,
		Source:   r.Source.String(),
		Items:    r.Items,
		Duration: r.Duration.Round(time.Millisecond).String(),
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

func writeReports(w io.Writer, format string, reports []repository.Report) error {
	views := make([]reportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, toView(r))
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSOURCE\tITEMS\tDURATION\tERROR")
	for _, v := range views {
		errText := v.Error
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", v.Key, v.Source, v.Items, v.Duration, errText)
	}
	return tw.Flush()
}
