package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"marquee/internal/overrides"
	"marquee/internal/textutil"
)

func newAssignCommand(ctx *commandContext) *cobra.Command {
	assignCmd := &cobra.Command{
		Use:   "assign",
		Short: "Manage manual category classifications",
	}

	assignCmd.AddCommand(newAssignListCommand(ctx))
	assignCmd.AddCommand(newAssignAddCommand(ctx))
	assignCmd.AddCommand(newAssignCheckCommand(ctx))

	return assignCmd
}

func requireTable(ctx *commandContext) (*overrides.Table, error) {
	table, err := ctx.overridesTable()
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.New("paths.overrides_file is not configured")
	}
	return table, nil
}

func newAssignListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List manual classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := requireTable(ctx)
			if err != nil {
				return err
			}
			entries, err := table.Entries()
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []overrides.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No manual classifications in %s\n", table.Path())
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{strconv.FormatInt(e.MovieID, 10), e.Code, e.MovieName})
			}
			fmt.Fprintln(out, renderTable([]string{"Movie ID", "Category", "Title"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

func newAssignAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var force bool

	cmd := &cobra.Command{
		Use:   "add ID CODE",
		Short: "Pin a movie to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid movie id %q", args[0])
			}
			code := textutil.NormalizeCode(args[1])
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, ok := cfg.Category(code); !ok && !force {
				return fmt.Errorf("category %s is not configured (use --force to add it anyway)", code)
			}
			table, err := requireTable(ctx)
			if err != nil {
				return err
			}
			if err := table.Add(overrides.Entry{MovieID: id, MovieName: strings.TrimSpace(name), Code: code}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned movie %d to %s in %s\n", id, code, table.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Movie title stored alongside the entry")
	cmd.Flags().BoolVar(&force, "force", false, "Allow a category that is not in the configuration")
	return cmd
}

func newAssignCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [FILE]",
		Short: "Validate a classification file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.Paths.OverridesFile
			if len(args) == 1 {
				path = args[0]
			}
			if strings.TrimSpace(path) == "" {
				return errors.New("no classification file given and paths.overrides_file is not configured")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read classification file: %w", err)
			}
			entries, err := overrides.Parse(data, overrides.FormatFor(path))
			if err != nil {
				return err
			}

			known := make(map[string]struct{}, len(cfg.Categories))
			for _, cat := range cfg.Categories {
				known[cat.Code] = struct{}{}
			}
			problems := overrides.Check(entries, known)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, p := range problems {
				fmt.Fprintln(out, renderStatusLine("Entry", statusWarn, p.String(), colorize))
			}
			if len(problems) > 0 {
				return fmt.Errorf("%s: %d problem(s) in %d entries", path, len(problems), len(entries))
			}
			fmt.Fprintln(out, renderStatusLine("Classifications", statusOK, fmt.Sprintf("%d entries valid", len(entries)), colorize))
			return nil
		},
	}
}
