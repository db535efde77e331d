package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"compliance-calendar/internal/client"
	"compliance-calendar/internal/model"
	"compliance-calendar/internal/schedule"
	"compliance-calendar/internal/tzutil"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

func printLabel(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(label+":"), value)
}

// printFieldErrors lists validation messages, from the local form or from
// the service, one per line in field order.
func printFieldErrors(w io.Writer, err error) {
	var fields map[string]string
	var vErr *model.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &vErr):
		fields = vErr.FieldErrors
	case errors.As(err, &apiErr):
		fields = apiErr.Fields
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	for _, f := range names {
		fmt.Fprintf(w, "  %s %s\n", failStyle.Render(f+":"), fields[f])
	}
}

// whenLocal renders the span of e in tz. All-day events keep the dates of
// their own zone, whatever tz is.
func whenLocal(e model.Event, tz string) (date, span string) {
	if e.AllDay {
		s := schedule.FromInstants(e.StartAt, e.EndAt, true, tzutil.Resolve(e.TZ, tz))
		if s.EndDate != s.StartDate {
			return s.StartDate, "all day to " + s.EndDate
		}
		return s.StartDate, "all day"
	}
	date = tzutil.FormatTime(e.StartAt, tz, tzutil.DateLayout)
	return date, tzutil.FormatTime(e.StartAt, tz, tzutil.ClockLayout) + "-" + tzutil.FormatTime(e.EndAt, tz, tzutil.ClockLayout)
}

func renderEvents(w io.Writer, events []model.Event, tz string) {
	if len(events) == 0 {
		fmt.Fprintln(w, noteStyle.Render("no events"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DATE", "TIME", "TITLE", "TYPE", "PRIORITY", "STATUS")
	for _, e := range events {
		date, span := whenLocal(e, tz)
		t.Row(fmt.Sprint(e.ID), date, span, e.Title, string(e.Type), string(e.Priority), string(e.Status))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("%d event(s), times in %s", len(events), tz)))
}

func renderEvent(w io.Writer, e model.Event, tz string) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("#%d %s", e.ID, e.Title)))
	date, span := whenLocal(e, tz)
	printLabel(w, "When", date+" "+span+" ("+tz+")")
	if e.TZ != "" && e.TZ != tz {
		d, s := whenLocal(e, e.TZ)
		printLabel(w, "Event zone", d+" "+s+" ("+e.TZ+")")
	}
	printLabel(w, "Type", e.Type)
	printLabel(w, "Priority", e.Priority)
	printLabel(w, "Status", e.Status)
	if e.Location != "" {
		printLabel(w, "Location", e.Location)
	}
	if e.VirtualMeetingLink != "" {
		printLabel(w, "Link", e.VirtualMeetingLink)
	}
	if e.RRule != "" {
		printLabel(w, "Repeats", e.RRule)
	}
	for _, a := range e.Attendees {
		kind := "optional"
		if a.Required {
			kind = "required"
		}
		who := a.Email
		if who == "" && a.UserID != nil {
			who = fmt.Sprintf("user %d", *a.UserID)
		}
		printLabel(w, "Attendee", fmt.Sprintf("%s (%s, %s)", who, kind, a.Status))
	}
	for _, r := range e.Reminders {
		printLabel(w, "Reminder", fmt.Sprintf("%d min before by %s", r.MinutesBefore, r.Method))
	}
	if e.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, e.Description)
	}
}
