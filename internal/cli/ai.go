package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"compliance-calendar/internal/ai"
	"compliance-calendar/internal/model"
	"compliance-calendar/internal/tzutil"
)

func newAICmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Assistant helpers backed by the service",
	}
	cmd.AddCommand(
		newSuggestTitleCmd(g),
		newSummarizeCmd(g),
		newOptimizeCmd(g),
		newActionItemsCmd(g),
	)
	return cmd
}

func newSuggestTitleCmd(g *globals) *cobra.Command {
	var req ai.SuggestTitleRequest
	cmd := &cobra.Command{
		Use:   "suggest-title <description>",
		Short: "Suggest an event title from a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Description = strings.Join(args, " ")
			title, err := g.api.SuggestTitle(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), title)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.EventType, "type", "", "event type")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "priority")
	cmd.Flags().StringSliceVar(&req.Departments, "department", nil, "department name (repeatable)")
	return cmd
}

// briefs reduces events to what the assistant sees, with times rendered in
// tz.
func briefs(events []model.Event, tz string) []ai.EventBrief {
	out := make([]ai.EventBrief, 0, len(events))
	for _, e := range events {
		b := ai.EventBrief{
			ID:            strconv.FormatInt(e.ID, 10),
			Title:         e.Title,
			Type:          string(e.Type),
			Description:   e.Description,
			Location:      e.Location,
			DepartmentIDs: e.DepartmentIDs,
			Priority:      string(e.Priority),
			Status:        string(e.Status),
			AllDay:        e.AllDay,
			StartAt:       tzutil.FormatTime(e.StartAt, tz, tzutil.DisplayLayout),
			EndAt:         tzutil.FormatTime(e.EndAt, tz, tzutil.DisplayLayout),
		}
		for _, r := range e.Reminders {
			b.Reminders = append(b.Reminders, r.MinutesBefore)
		}
		out = append(out, b)
	}
	return out
}

func newSummarizeCmd(g *globals) *cobra.Command {
	var (
		l     listFlags
		label string
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the events in a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := l.filter(g.profile.TimeZone)
			if err != nil {
				return err
			}
			events, err := g.api.ListEvents(cmd.Context(), f)
			if err != nil {
				return err
			}
			if label == "" && l.start != "" {
				label = strings.TrimSpace(l.start + " to " + l.end)
			}
			summary, err := g.api.Summarize(cmd.Context(), ai.SummarizeRequest{
				TZ:          g.profile.TimeZone,
				WindowLabel: label,
				Events:      briefs(events, g.profile.TimeZone),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	l.register(cmd)
	cmd.Flags().StringVar(&label, "label", "", "window description passed to the assistant")
	return cmd
}

func newOptimizeCmd(g *globals) *cobra.Command {
	var (
		l                  listFlags
		workStart, workEnd string
		avoidDays          []int
		maxDaily, buffer   int
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Ask for moves that respect working hours and buffers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := l.filter(g.profile.TimeZone)
			if err != nil {
				return err
			}
			events, err := g.api.ListEvents(cmd.Context(), f)
			if err != nil {
				return err
			}
			req := ai.OptimizeRequest{Events: briefs(events, g.profile.TimeZone)}
			if workStart != "" || workEnd != "" {
				req.Constraints.WorkingHours = &ai.WorkingHours{Start: workStart, End: workEnd}
			}
			req.Constraints.AvoidDays = avoidDays
			if cmd.Flags().Changed("max-daily") {
				req.Constraints.MaxDailyMeetings = &maxDaily
			}
			if cmd.Flags().Changed("buffer") {
				req.Constraints.BufferMinutes = &buffer
			}
			res, err := g.api.Optimize(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Moves) == 0 {
				fmt.Fprintln(out, noteStyle.Render("no moves suggested"))
			}
			for _, m := range res.Moves {
				fmt.Fprintf(out, "%s #%s %s -> %s  %s\n", labelStyle.Render("move"), m.ID, m.NewStartAt, m.NewEndAt, m.Reason)
			}
			for _, n := range res.Notes {
				fmt.Fprintln(out, noteStyle.Render("note: ")+n)
			}
			return nil
		},
	}
	l.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&workStart, "work-start", "", "working day start HH:MM")
	fs.StringVar(&workEnd, "work-end", "", "working day end HH:MM")
	fs.IntSliceVar(&avoidDays, "avoid-day", nil, "weekday to keep free, 0=Sunday (repeatable)")
	fs.IntVar(&maxDaily, "max-daily", 0, "maximum meetings per day")
	fs.IntVar(&buffer, "buffer", 0, "minutes between meetings")
	return cmd
}

func newActionItemsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "action-items <description>",
		Short: "Extract action items from a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := g.api.ActionItems(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, it := range items {
				fmt.Fprintln(cmd.OutOrStdout(), "- "+it)
			}
			return nil
		},
	}
}
