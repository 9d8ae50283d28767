package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/store"
	"marquee/internal/textutil"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect or reset the published catalog",
	}

	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))
	catalogCmd.AddCommand(newCatalogResetCommand(ctx))

	return catalogCmd
}

func loadCatalog(cmd *cobra.Command, st *store.Store, previous bool) (*catalog.Snapshot, error) {
	key := store.KeyCatalog
	if previous {
		key = store.KeyCatalogPrevious
	}
	snap, err := st.LoadSnapshot(cmd.Context(), key)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.New("no catalog stored yet; run 'marquee update' first")
	}
	return snap, nil
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	var previous bool

	cmd := &cobra.Command{
		Use:   "show [CODE]",
		Short: "Print one category or the whole catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				snap, err := loadCatalog(cmd, st, previous)
				if err != nil {
					return err
				}

				codes := orderedCodes(cfg, snap)
				if len(args) == 1 {
					code := textutil.NormalizeCode(args[0])
					if _, ok := snap.Categories[code]; !ok {
						return fmt.Errorf("category %s not in catalog", code)
					}
					codes = []string{code}
				}

				if jsonOutput {
					view := make(map[string][]catalog.OutputItem, len(codes))
					for _, code := range codes {
						view[code] = clip(snap.Categories[code], limit)
					}
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for i, code := range codes {
					if i > 0 {
						fmt.Fprintln(out)
					}
					items := snap.Categories[code]
					for _, line := range renderSectionHeader(fmt.Sprintf("%s (%d)", categoryLabel(cfg, code), len(items)), colorize) {
						fmt.Fprintln(out, line)
					}
					if len(items) == 0 {
						fmt.Fprintln(out, "No items")
						continue
					}
					fmt.Fprintln(out, renderItems(clip(items, limit)))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most N items per category (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&previous, "previous", false, "Show the catalog from the run before the latest")
	return cmd
}

func renderItems(items []catalog.OutputItem) string {
	headers := []string{"#", "ID", "Title", "Year", "Rating", "Score", "Source"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.ID,
			textutil.Truncate(item.Name, 48),
			item.ReleaseInfo,
			item.IMDBRating,
			strconv.FormatFloat(item.Score, 'f', 2, 64),
			item.Source,
		})
	}
	return renderTable(headers, rows, aligns)
}

func clip(items []catalog.OutputItem, limit int) []catalog.OutputItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// orderedCodes lists the snapshot's categories in configured order, then any
// extra codes left over from an older configuration.
func orderedCodes(cfg *config.Config, snap *catalog.Snapshot) []string {
	seen := make(map[string]struct{}, len(snap.Categories))
	codes := make([]string, 0, len(snap.Categories))
	for _, cat := range cfg.Categories {
		if _, ok := snap.Categories[cat.Code]; ok {
			codes = append(codes, cat.Code)
			seen[cat.Code] = struct{}{}
		}
	}
	for _, code := range snap.Codes() {
		if _, ok := seen[code]; !ok {
			codes = append(codes, code)
		}
	}
	return codes
}

func categoryLabel(cfg *config.Config, code string) string {
	if cat, ok := cfg.Category(code); ok && strings.TrimSpace(cat.Name) != "" {
		return cat.Name
	}
	return textutil.DisplayName(code)
}

type catalogStats struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Date        string               `json:"date"`
	Strategy    string               `json:"strategy"`
	Total       int                  `json:"total"`
	Categories  []categoryStat       `json:"categories"`
	LastRun     *catalog.RunMetadata `json:"lastRun,omitempty"`
}

type categoryStat struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Count    int            `json:"count"`
	Capacity int            `json:"capacity"`
	Sources  map[string]int `json:"sources"`
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize category fill and the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				snap, err := loadCatalog(cmd, st, false)
				if err != nil {
					return err
				}
				meta, err := st.LoadMetadata(cmd.Context())
				if err != nil {
					return err
				}
				stats := buildCatalogStats(cfg, snap, meta)
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				printCatalogStats(cmd, stats)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func buildCatalogStats(cfg *config.Config, snap *catalog.Snapshot, meta *catalog.RunMetadata) catalogStats {
	capacities := make(map[string]int, len(cfg.Categories))
	for _, spec := range cfg.CategorySpecs() {
		capacities[spec.Code] = spec.Capacity
	}
	stats := catalogStats{
		GeneratedAt: snap.GeneratedAt,
		Date:        snap.Date,
		Strategy:    snap.Strategy,
		Total:       snap.Total(),
		LastRun:     meta,
	}
	for _, code := range orderedCodes(cfg, snap) {
		items := snap.Categories[code]
		sources := make(map[string]int)
		for _, item := range items {
			sources[item.Source]++
		}
		stats.Categories = append(stats.Categories, categoryStat{
			Code:     code,
			Name:     categoryLabel(cfg, code),
			Count:    len(items),
			Capacity: capacities[code],
			Sources:  sources,
		})
	}
	return stats
}

func printCatalogStats(cmd *cobra.Command, stats catalogStats) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Catalog", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Date", statusInfo, stats.Date, colorize))
	fmt.Fprintln(out, renderStatusLine("Strategy", statusInfo, stats.Strategy, colorize))
	fmt.Fprintln(out, renderStatusLine("Generated", statusInfo, stats.GeneratedAt.Format(time.RFC3339), colorize))
	fmt.Fprintln(out, renderStatusLine("Items", statusInfo, strconv.Itoa(stats.Total), colorize))
	if meta := stats.LastRun; meta != nil {
		kind := statusOK
		if len(meta.Deficits) > 0 {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Last run", kind, fmt.Sprintf("%s in %s, %d requests", meta.RunID, meta.Duration.Round(time.Millisecond), meta.APIRequests), colorize))
	}
	for _, cat := range stats.Categories {
		fmt.Fprintln(out, renderStatusLine(cat.Code, fillStatus(cat.Count, cat.Capacity), fmt.Sprintf("%d/%d %s", cat.Count, cat.Capacity, formatSources(cat.Sources)), colorize))
	}
}

func formatSources(sources map[string]int) string {
	order := []catalog.Source{catalog.SourceManual, catalog.SourceScored, catalog.SourceRelaxed, catalog.SourceMinimal, catalog.SourceCached}
	parts := make([]string, 0, len(order))
	for _, src := range order {
		if n := sources[string(src)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", src, n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func newCatalogResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the catalog, previous catalog, metadata and recent history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				removed, err := st.ResetCatalog(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d catalog records; cached details kept\n", removed)
				return nil
			})
		},
	}
}
