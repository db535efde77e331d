package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"compliance-calendar/internal/ai"
	"compliance-calendar/internal/client"
	"compliance-calendar/internal/model"
	"compliance-calendar/internal/schedule"
	"compliance-calendar/internal/tzutil"
)

var errNotSaved = errors.New("event not saved")

func newEventCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "event",
		Aliases: []string{"events"},
		Short:   "Create, edit, list and delete events",
	}
	cmd.AddCommand(
		newEventNewCmd(g),
		newEventEditCmd(g),
		newEventShowCmd(g),
		newEventDeleteCmd(g),
		newEventListCmd(g),
		newEventExportCmd(g),
	)
	return cmd
}

func newEventNewCmd(g *globals) *cobra.Command {
	var (
		f       formFlags
		suggest bool
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an event",
		Example: `  calctl event new --title "SOX walkthrough" --type Audit --start-date 2025-06-10 --start-time 14:00
  calctl event new --description "yearly review of vendor contracts" --suggest-title --all-day`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := schedule.NewForm(g.now(), g.profile.TimeZone)
			notes := f.apply(cmd, &form, "")
			out := cmd.OutOrStdout()

			if suggest && strings.TrimSpace(form.Title) == "" {
				title, err := suggestTitle(cmd.Context(), g, form)
				if err != nil {
					return fmt.Errorf("suggest title: %w", err)
				}
				form.Title = title
				notes = append(notes, fmt.Sprintf("title suggested: %q", title))
			}
			for _, n := range notes {
				fmt.Fprintln(out, noteStyle.Render("note: ")+n)
			}
			return submit(cmd, g, form, 0, dryRun)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&suggest, "suggest-title", false, "ask the assistant for a title when none is given")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the request body instead of sending it")
	return cmd
}

func newEventEditCmd(g *globals) *cobra.Command {
	var (
		f      formFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an existing event; unset flags keep their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := g.api.GetEvent(cmd.Context(), id)
			if err != nil {
				return err
			}
			form := schedule.FormFromEvent(e, g.profile.TimeZone)
			// only an explicit --tz moves the event to another zone
			var tz string
			if cmd.Flags().Changed("tz") {
				tz = g.profile.TimeZone
			}
			for _, n := range f.apply(cmd, &form, tz) {
				fmt.Fprintln(cmd.OutOrStdout(), noteStyle.Render("note: ")+n)
			}
			return submit(cmd, g, form, id, dryRun)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the request body instead of sending it")
	return cmd
}

// submit validates the form locally, then creates the event, or updates it
// when id is set.
func submit(cmd *cobra.Command, g *globals, form schedule.Form, id int64, dryRun bool) error {
	out := cmd.OutOrStdout()
	isNew := id == 0
	if err := form.Validate(tzutil.TodayInTimeZone(g.now(), form.Schedule.TimeZone), isNew); err != nil {
		fmt.Fprintln(out, failStyle.Render("please fix:"))
		printFieldErrors(out, err)
		return errNotSaved
	}
	p, err := form.Payload()
	if err != nil {
		return err
	}
	if !isNew {
		// untouched lists stay as stored, keeping attendee responses and
		// reminder methods
		if !cmd.Flags().Changed("required") && !cmd.Flags().Changed("optional") {
			p.Attendees = nil
		}
		if !cmd.Flags().Changed("reminder") {
			p.Reminders = nil
		}
	}
	if dryRun {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	var e model.Event
	if isNew {
		e, err = g.api.CreateEvent(cmd.Context(), p)
	} else {
		e, err = g.api.UpdateEvent(cmd.Context(), id, p)
	}
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			fmt.Fprintln(out, failStyle.Render("rejected by the service:"))
			printFieldErrors(out, err)
			return errNotSaved
		}
		return err
	}
	verb := "created"
	if !isNew {
		verb = "updated"
	}
	date, span := whenLocal(e, g.profile.TimeZone)
	fmt.Fprintf(out, "%s event #%d %q on %s %s (%s)\n", okStyle.Render(verb), e.ID, e.Title, date, span, g.profile.TimeZone)
	return nil
}

func suggestTitle(ctx context.Context, g *globals, form schedule.Form) (string, error) {
	if len(strings.TrimSpace(form.Description)) < 2 {
		return "", errors.New("--description is required to suggest a title")
	}
	req := ai.SuggestTitleRequest{
		Description: form.Description,
		EventType:   string(form.Type),
		Priority:    string(form.Priority),
	}
	for _, d := range form.DepartmentIDs {
		req.Departments = append(req.Departments, strconv.FormatInt(d, 10))
	}
	s := &client.TitleSuggester{Client: g.api}
	defer s.Stop()
	var title string
	if _, err := s.Suggest(ctx, req, func(t string) { title = t }); err != nil {
		return "", err
	}
	if title == "" {
		return "", errors.New("assistant returned no title")
	}
	return title, nil
}

func newEventShowCmd(g *globals) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := g.api.GetEvent(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(e)
			}
			renderEvent(cmd.OutOrStdout(), e, g.profile.TimeZone)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw event")
	return cmd
}

func newEventDeleteCmd(g *globals) *cobra.Command {
	var hard bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Cancel an event, or remove it with --hard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := g.api.DeleteEvent(cmd.Context(), id, hard); err != nil {
				return err
			}
			verb := "cancelled"
			if hard {
				verb = "deleted"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s event #%d\n", okStyle.Render(verb), id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&hard, "hard", false, "remove the event instead of cancelling it")
	return cmd
}

// listFlags are shared by list and export.
type listFlags struct {
	start       string
	end         string
	types       []string
	departments []int64
	priorities  []string
	status      string
	mine        bool
	expand      bool
}

func (l *listFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&l.start, "start", "", "window start: YYYY-MM-DD in --tz or an RFC 3339 instant")
	fs.StringVar(&l.end, "end", "", "window end: YYYY-MM-DD (inclusive) in --tz or an RFC 3339 instant")
	fs.StringSliceVar(&l.types, "type", nil, "event type (repeatable)")
	fs.Int64SliceVar(&l.departments, "department", nil, "department id (repeatable)")
	fs.StringSliceVar(&l.priorities, "priority", nil, "priority (repeatable)")
	fs.StringVar(&l.status, "status", "", "All, Upcoming, In Progress, Completed or Overdue")
	fs.BoolVar(&l.mine, "mine", false, "only events I organize")
	fs.BoolVar(&l.expand, "expand", false, "expand recurring events inside the window")
}

func (l *listFlags) filter(tz string) (client.ListFilter, error) {
	f := client.ListFilter{
		Departments:      l.departments,
		Status:           model.StatusFilter(l.status),
		Mine:             l.mine,
		ExpandRecurrence: l.expand,
	}
	for _, t := range l.types {
		f.Types = append(f.Types, model.EventType(t))
	}
	for _, p := range l.priorities {
		f.Priorities = append(f.Priorities, model.Priority(p))
	}
	var err error
	if l.start != "" {
		if f.Start, err = windowBound(l.start, tz, false); err != nil {
			return f, fmt.Errorf("--start: %w", err)
		}
	}
	if l.end != "" {
		if f.End, err = windowBound(l.end, tz, true); err != nil {
			return f, fmt.Errorf("--end: %w", err)
		}
	}
	return f, nil
}

// windowBound reads a date as local midnight in tz; an end date covers the
// whole day.
func windowBound(v, tz string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if end {
		next, err := tzutil.AddDays(v, 1)
		if err != nil {
			return time.Time{}, err
		}
		v = next
	}
	return tzutil.ZonedDateTimeToUTC(v, "", tz)
}

func newEventListCmd(g *globals) *cobra.Command {
	var (
		l      listFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events in the display zone",
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
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			renderEvents(cmd.OutOrStdout(), events, g.profile.TimeZone)
			return nil
		},
	}
	l.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw events")
	return cmd
}

func newEventExportCmd(g *globals) *cobra.Command {
	var (
		l      listFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download events as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := l.filter(g.profile.TimeZone)
			if err != nil {
				return err
			}
			feed, err := g.api.ExportICS(cmd.Context(), f)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(feed)
				return err
			}
			if err := os.WriteFile(output, feed, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("wrote"), output)
			return nil
		},
	}
	l.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func parseID(v string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(v, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", v)
	}
	return id, nil
}
