package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"compliance-calendar/internal/client"
)

func newStatsCmd(g *globals) *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.api.Stats(cmd.Context(), mine)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printLabel(out, "Total", s.Total)
			printLabel(out, "Upcoming", s.Upcoming)
			printLabel(out, "In progress", s.InProgress)
			printLabel(out, "Completed", s.Completed)
			printLabel(out, "Overdue", s.Overdue)
			printCounts(out, "By type", s.ByType)
			printCounts(out, "By priority", s.ByPriority)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only events I organize")
	return cmd
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	printLabel(w, label, strings.Join(parts, ", "))
}

func newSlotsCmd(g *globals) *cobra.Command {
	var (
		q         client.SlotQuery
		avoidDays []int
	)
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Find free slots in working hours",
		Example: `  calctl slots --start-date 2025-06-10 --end-date 2025-06-13 --minutes 60 --avoid-day 0 --avoid-day 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.TZ = g.profile.TimeZone
			for _, d := range avoidDays {
				if d < 0 || d > 6 {
					return fmt.Errorf("--avoid-day %d: use 0 (Sunday) to 6 (Saturday)", d)
				}
				q.AvoidDays = append(q.AvoidDays, time.Weekday(d))
			}
			res, err := g.api.FreeSlots(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Slots) == 0 {
				fmt.Fprintln(out, noteStyle.Render("no free slots"))
				return nil
			}
			t := table.New().Border(lipgloss.NormalBorder()).Headers("DATE", "START", "END")
			for _, s := range res.Slots {
				t.Row(s.Date, s.Start, s.End)
			}
			fmt.Fprintln(out, t.Render())
			fmt.Fprintln(out, labelStyle.Render(strconv.Itoa(res.Count)+" slot(s), times in "+res.TZ))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&q.StartDate, "start-date", "", "first day YYYY-MM-DD (default today)")
	fs.StringVar(&q.EndDate, "end-date", "", "last day YYYY-MM-DD (default start date)")
	fs.StringVar(&q.WorkStart, "work-start", "", "working day start HH:MM (default 09:00)")
	fs.StringVar(&q.WorkEnd, "work-end", "", "working day end HH:MM (default 17:00)")
	fs.IntVar(&q.SlotMinutes, "minutes", 0, "slot length in minutes (default 30)")
	fs.IntSliceVar(&avoidDays, "avoid-day", nil, "weekday to skip, 0=Sunday (repeatable)")
	fs.BoolVar(&q.Mine, "mine", false, "only count my own events as busy")
	return cmd
}
