package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/rotation"
)

func newRotationCommand(_ *commandContext) *cobra.Command {
	var dateFlag string
	var days int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "rotation",
		Short:       "Show the discover strategy and pages for a date",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			start := rotation.ForDate(time.Now())
			if value := strings.TrimSpace(dateFlag); value != "" {
				parsed, err := rotation.Parse(value)
				if err != nil {
					return err
				}
				start = parsed
			}
			if days < 1 {
				days = 1
			}
			plans := make([]rotationView, 0, days)
			for i := range days {
				plans = append(plans, newRotationView(rotation.ForDate(start.Date.AddDate(0, 0, i))))
			}
			if jsonOutput {
				return writeJSON(cmd, plans)
			}

			headers := []string{"Date", "Strategy", "Week", "Pages", "Sort", "Filters"}
			rows := make([][]string, 0, len(plans))
			for _, p := range plans {
				rows = append(rows, []string{p.Date, p.Strategy, fmt.Sprint(p.WeekIndex), joinInts(p.Pages), p.SortBy, p.Filters})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Start date (YYYY-MM-DD); defaults to today")
	cmd.Flags().IntVar(&days, "days", 1, "Number of consecutive days to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	return cmd
}

type rotationView struct {
	Date      string `json:"date"`
	Strategy  string `json:"strategy"`
	WeekIndex int    `json:"weekIndex"`
	Pages     []int  `json:"pages"`
	SortBy    string `json:"sortBy"`
	Filters   string `json:"filters,omitempty"`
}

func newRotationView(day rotation.DayContext) rotationView {
	plan := day.Plan()
	var filters []string
	if plan.MinVotes > 0 {
		filters = append(filters, fmt.Sprintf("votes>=%d", plan.MinVotes))
	}
	if plan.MinRating > 0 {
		filters = append(filters, fmt.Sprintf("rating>=%g", plan.MinRating))
	}
	if plan.ReleaseDateGTE != "" {
		filters = append(filters, "from "+plan.ReleaseDateGTE)
	}
	if plan.ReleaseDateLTE != "" {
		filters = append(filters, "until "+plan.ReleaseDateLTE)
	}
	return rotationView{
		Date:      day.ISODate(),
		Strategy:  string(day.Strategy),
		WeekIndex: day.WeekIndex,
		Pages:     plan.Pages,
		SortBy:    plan.SortBy,
		Filters:   strings.Join(filters, ", "),
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
