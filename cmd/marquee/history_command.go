package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/config"
	"marquee/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the recently shown history",
	}

	var jsonOutput bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Summarize the runs held in recent history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				history, err := st.LoadHistory(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, history)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Recent history", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Runs", statusInfo, fmt.Sprintf("%d of %d", len(history.Runs), cfg.Catalog.HistoryRuns), colorize))
				fmt.Fprintln(out, renderStatusLine("Distinct ids", statusInfo, fmt.Sprintf("%d of %d", history.Len(), cfg.Catalog.HistoryCapacity), colorize))
				if !history.UpdatedAt.IsZero() {
					fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, history.UpdatedAt.Format(time.RFC3339), colorize))
				}
				if len(history.Runs) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				rows := make([][]string, 0, len(history.Runs))
				for _, run := range history.Runs {
					rows = append(rows, []string{run.Date, strconv.Itoa(len(run.IDs))})
				}
				fmt.Fprintln(out, renderTable([]string{"Date", "Items"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")

	historyCmd.AddCommand(showCmd)
	return historyCmd
}
