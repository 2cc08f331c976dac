package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"supplier_leads_scraper/internal/ledger"
	"supplier_leads_scraper/internal/report"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs recorded in the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if !cfg.Ledger.Enabled {
				return errors.New("the ledger is disabled (ledger.enabled)")
			}
			led, err := ledger.Open(cmd.Context(), cfg.Ledger.Path, log)
			if err != nil {
				return err
			}
			defer led.Close()

			runs, err := led.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}
			report.RenderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
