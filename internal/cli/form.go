package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"compliance-calendar/internal/model"
	"compliance-calendar/internal/schedule"
)

// formFlags maps the event sheet onto flags. Only flags the user set are
// applied, so the same set serves new and edited events.
type formFlags struct {
	title       string
	eventType   string
	description string
	location    string
	link        string
	room        string
	departments []int64
	equipment   []string
	catering    bool
	priority    string
	status      string
	rrule       string
	noInvites   bool
	required    string
	optional    string
	reminders   []int

	startDate string
	startTime string
	endDate   string
	endTime   string
	allDay    bool
}

func (f *formFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "event title (2-200 characters)")
	fs.StringVar(&f.eventType, "type", string(model.TypeMeeting), "event type")
	fs.StringVar(&f.description, "description", "", "description")
	fs.StringVar(&f.location, "location", "", "physical location")
	fs.StringVar(&f.link, "link", "", "virtual meeting link")
	fs.StringVar(&f.room, "room", "", "meeting room")
	fs.Int64SliceVar(&f.departments, "department", nil, "department id (repeatable)")
	fs.StringSliceVar(&f.equipment, "equipment", nil, "equipment needed (repeatable)")
	fs.BoolVar(&f.catering, "catering", false, "catering required")
	fs.StringVar(&f.priority, "priority", string(model.PriorityMedium), "Low, Medium, High or Critical")
	fs.StringVar(&f.status, "status", string(model.StatusScheduled), "Scheduled, In Progress, Completed or Cancelled")
	fs.StringVar(&f.rrule, "rrule", "", "RFC 5545 recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO")
	fs.BoolVar(&f.noInvites, "no-invites", false, "do not send invitations")
	fs.StringVar(&f.required, "required", "", "comma separated required attendee emails")
	fs.StringVar(&f.optional, "optional", "", "comma separated optional attendee emails")
	fs.IntSliceVar(&f.reminders, "reminder", nil, "reminder in minutes before start: 15, 30, 60, 1440 or 10080 (repeatable)")

	fs.StringVar(&f.startDate, "start-date", "", "start date YYYY-MM-DD")
	fs.StringVar(&f.startTime, "start-time", "", "start time HH:MM")
	fs.StringVar(&f.endDate, "end-date", "", "end date YYYY-MM-DD")
	fs.StringVar(&f.endTime, "end-time", "", "end time HH:MM")
	fs.BoolVar(&f.allDay, "all-day", false, "all-day event")
}

// apply copies the set flags onto form. Schedule fields go through the
// reconciling setters in sheet order; the returned notes describe any value
// that was corrected on the way.
func (f *formFlags) apply(cmd *cobra.Command, form *schedule.Form, tz string) []string {
	changed := cmd.Flags().Changed
	if changed("title") {
		form.Title = f.title
	}
	if changed("type") {
		form.Type = model.EventType(f.eventType)
	}
	if changed("description") {
		form.Description = f.description
	}
	if changed("location") {
		form.Location = f.location
	}
	if changed("link") {
		form.VirtualMeetingLink = f.link
	}
	if changed("room") {
		form.MeetingRoom = f.room
	}
	if changed("department") {
		form.DepartmentIDs = f.departments
	}
	if changed("equipment") {
		form.Equipment = f.equipment
	}
	if changed("catering") {
		form.CateringRequired = f.catering
	}
	if changed("priority") {
		form.Priority = model.Priority(f.priority)
	}
	if changed("status") {
		form.Status = model.Status(f.status)
	}
	if changed("rrule") {
		form.RRule = strings.TrimSpace(f.rrule)
	}
	if changed("no-invites") {
		form.SendInvitations = !f.noInvites
	}
	if changed("required") {
		form.RequiredAttendees = f.required
	}
	if changed("optional") {
		form.OptionalAttendees = f.optional
	}
	if changed("reminder") {
		form.Reminders = f.reminders
	}

	s := form.Schedule
	if tz != "" && tz != s.TimeZone {
		s = s.WithTimeZone(tz)
	}
	if changed("all-day") {
		s = s.WithAllDay(f.allDay)
	}
	if changed("start-date") {
		s = s.WithStartDate(f.startDate)
	}
	if changed("start-time") {
		s = s.WithStartTime(f.startTime)
	}
	if changed("end-date") {
		s = s.WithEndDate(f.endDate)
	}
	if changed("end-time") {
		s = s.WithEndTime(f.endTime)
	}

	var notes []string
	if changed("end-date") && s.EndDate != f.endDate {
		notes = append(notes, fmt.Sprintf("end date moved to %s", s.EndDate))
	}
	if changed("end-time") && !s.AllDay && s.EndTime != f.endTime {
		notes = append(notes, fmt.Sprintf("end time moved to %s %s", s.EndDate, s.EndTime))
	}
	if !changed("end-time") && !changed("end-date") && !s.AllDay && (s.EndTime != form.Schedule.EndTime || s.EndDate != form.Schedule.EndDate) {
		notes = append(notes, fmt.Sprintf("end set to %s %s", s.EndDate, s.EndTime))
	}
	form.Schedule = s
	return notes
}
