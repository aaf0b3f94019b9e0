package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/pkg/config"
)

func newGCCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Run one reconciliation sweep and exit",
		Long: `Deletes objects no record references (older than gc.grace_period),
purges trash older than gc.trash_retention and reports records whose object
is missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dryRun {
				cfg.GC.DryRun = true
			}

			st, err := buildStack(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			collector, err := config.CreateCollector(&cfg.GC, st.objects, st.meta, st.service, st.metrics.GC)
			if err != nil {
				return err
			}

			stats, err := collector.RunNow(cmd.Context())
			if stats != nil {
				fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
				for _, key := range stats.Dangling {
					fmt.Fprintf(cmd.OutOrStdout(), "dangling: %s\n", key)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without deleting")
	return cmd
}
