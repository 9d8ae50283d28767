package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"marquee/internal/config"
	"marquee/internal/overrides"
	"marquee/internal/rotation"
	"marquee/internal/store"
	"marquee/internal/tmdb"
	"marquee/internal/update"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch candidates and rebuild the catalog",
		Long: "Run the nightly pipeline: fetch discover pages for the day's strategy, assign\n" +
			"and merge each category, enrich the result, and persist it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var day *rotation.DayContext
			if strings.TrimSpace(dateFlag) != "" {
				parsed, err := rotation.Parse(strings.TrimSpace(dateFlag))
				if err != nil {
					return err
				}
				day = &parsed
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireTMDB(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				api, err := tmdb.NewFromConfig(cfg, logger)
				if err != nil {
					return fmt.Errorf("tmdb client: %w", err)
				}
				updater, err := update.New(update.Deps{
					Config:    cfg,
					Store:     st,
					API:       api,
					Overrides: overrides.NewTable(cfg.Paths.OverridesFile, logger),
					Logger:    logger,
				})
				if err != nil {
					return err
				}
				summary, err := updater.Run(signalCtx, update.Options{Day: day, DryRun: dryRun})
				if errors.Is(err, update.ErrLocked) {
					return fmt.Errorf("%w (lock file %s)", err, cfg.Paths.LockFile)
				}
				if err != nil {
					if errors.Is(signalCtx.Err(), context.Canceled) {
						return context.Canceled
					}
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, summary.Metadata)
				}
				printUpdateSummary(cmd, cfg, summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Run as if today were YYYY-MM-DD")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the catalog without persisting anything")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run metadata as JSON")
	return cmd
}

func printUpdateSummary(cmd *cobra.Command, cfg *config.Config, summary *update.Summary) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Update "+summary.Day.ISODate(), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Strategy", statusInfo, string(summary.Day.Strategy), colorize))
	fmt.Fprintln(out, renderStatusLine("Run ID", statusInfo, summary.RunID, colorize))
	fmt.Fprintln(out, renderStatusLine("Fresh only", statusInfo, yesNo(summary.Engine.FreshOnly), colorize))
	fmt.Fprintln(out, renderStatusLine("TMDB requests", statusInfo, strconv.FormatInt(summary.Metadata.APIRequests, 10), colorize))
	if summary.Fetch.Failures > 0 {
		fmt.Fprintln(out, renderStatusLine("Fetch", statusWarn, fmt.Sprintf("%d of %d pages failed", summary.Fetch.Failures, summary.Fetch.Requests), colorize))
	}
	if summary.Enrich.Failed > 0 {
		fmt.Fprintln(out, renderStatusLine("Details", statusWarn, fmt.Sprintf("%d lookups failed", summary.Enrich.Failed), colorize))
	}
	if summary.DryRun {
		fmt.Fprintln(out, renderStatusLine("Persisted", statusWarn, "no (dry run)", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Persisted", statusOK, "yes", colorize))
	}
	fmt.Fprintln(out)

	headers := []string{"Category", "Items", "Capacity", "Fresh", "Cached", "Deficit"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
	rows := make([][]string, 0, len(cfg.Categories))
	for _, spec := range cfg.CategorySpecs() {
		stats := summary.Engine.Merge[spec.Code]
		rows = append(rows, []string{
			spec.Code,
			strconv.Itoa(len(summary.Snapshot.Categories[spec.Code])),
			strconv.Itoa(spec.Capacity),
			strconv.Itoa(stats.Fresh),
			strconv.Itoa(stats.Cached),
			strconv.Itoa(summary.Engine.Deficits[spec.Code]),
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))

	if len(summary.Engine.Unknown) > 0 {
		unknown := append([]string(nil), summary.Engine.Unknown...)
		sort.Strings(unknown)
		fmt.Fprintln(out, renderStatusLine("Ignored", statusWarn, strings.Join(unknown, ", "), colorize))
	}
}
