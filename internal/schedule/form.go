package schedule

import (
	"fmt"
	"strings"
	"time"

	"compliance-calendar/internal/model"
	"compliance-calendar/internal/tzutil"
)

type ReminderOption struct {
	Minutes int
	Label   string
}

// ReminderOptions are the offsets offered on the event sheet.
var ReminderOptions = []ReminderOption{
	{15, "15 minutes before"},
	{30, "30 minutes before"},
	{60, "1 hour before"},
	{24 * 60, "1 day before"},
	{7 * 24 * 60, "1 week before"},
}

func reminderOffered(minutes int) bool {
	for _, o := range ReminderOptions {
		if o.Minutes == minutes {
			return true
		}
	}
	return false
}

// Form is the full event sheet. Attendees are entered as comma-separated
// email lists, reminders as a selection from ReminderOptions.
type Form struct {
	Title              string
	Type               model.EventType
	Description        string
	Location           string
	VirtualMeetingLink string
	DepartmentIDs      []int64
	Equipment          []string
	MeetingRoom        string
	CateringRequired   bool
	Priority           model.Priority
	Status             model.Status
	Schedule           Schedule
	RRule              string
	SendInvitations    bool

	RequiredAttendees string
	OptionalAttendees string
	Reminders         []int
}

// NewForm opens the sheet for a new event in zone tz.
func NewForm(now time.Time, tz string) Form {
	return Form{
		Type:            model.TypeMeeting,
		Priority:        model.PriorityMedium,
		Status:          model.StatusScheduled,
		Schedule:        New(now, tz),
		SendInvitations: true,
	}
}

// FormFromEvent opens the sheet for an existing event. The zone falls back
// from the event's own zone to formTZ and then to the host zone.
func FormFromEvent(e model.Event, formTZ string) Form {
	tz := tzutil.Resolve(e.TZ, formTZ)
	f := Form{
		Title:              e.Title,
		Type:               e.Type,
		Description:        e.Description,
		Location:           e.Location,
		VirtualMeetingLink: e.VirtualMeetingLink,
		DepartmentIDs:      e.DepartmentIDs,
		Equipment:          e.Equipment,
		MeetingRoom:        e.MeetingRoom,
		CateringRequired:   e.CateringRequired,
		Priority:           e.Priority,
		Status:             e.Status,
		Schedule:           FromInstants(e.StartAt, e.EndAt, e.AllDay, tz),
		RRule:              e.RRule,
		SendInvitations:    e.SendInvitations,
	}
	var required, optional []string
	for _, a := range e.Attendees {
		if a.Email == "" {
			continue
		}
		if a.Required {
			required = append(required, a.Email)
		} else {
			optional = append(optional, a.Email)
		}
	}
	f.RequiredAttendees = strings.Join(required, ", ")
	f.OptionalAttendees = strings.Join(optional, ", ")
	for _, r := range e.Reminders {
		f.Reminders = append(f.Reminders, r.MinutesBefore)
	}
	return f
}

// SplitEmails splits a comma-separated list, dropping blanks.
func SplitEmails(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Attendees returns required entries first, then optional ones.
func (f Form) Attendees() []model.Attendee {
	var out []model.Attendee
	for _, email := range SplitEmails(f.RequiredAttendees) {
		out = append(out, model.Attendee{Email: email, Required: true})
	}
	for _, email := range SplitEmails(f.OptionalAttendees) {
		out = append(out, model.Attendee{Email: email, Required: false})
	}
	return out
}

// Validate reports field-level problems. today is the current date in the
// form's zone; the not-in-the-past rule only applies to new events.
func (f Form) Validate(today string, isNew bool) error {
	v := model.NewValidationError()

	model.CheckField(v, "title", strings.TrimSpace(f.Title),
		fmt.Sprintf("min=%d,max=%d", model.TitleMinLen, model.TitleMaxLen),
		fmt.Sprintf("title must be between %d and %d characters", model.TitleMinLen, model.TitleMaxLen))
	model.CheckField(v, "type", f.Type, "enum", "type is invalid")
	model.CheckField(v, "priority", f.Priority, "enum", "priority is invalid")
	model.CheckField(v, "status", f.Status, "enum", "status is invalid")

	s := f.Schedule
	model.CheckField(v, "time_zone", tzutil.ResolveTimeZone(s.TimeZone), "timezone", "time zone is not recognised")
	startOK := validDate(s.StartDate)
	endOK := validDate(s.EndDate)
	if !startOK {
		v.Add("start_date", "start date is required")
	} else if isNew && s.StartDate < today {
		v.Add("start_date", "start date cannot be in the past")
	}
	if !endOK {
		v.Add("end_date", "end date is required")
	} else if startOK && s.EndDate < s.StartDate {
		v.Add("end_date", "end date must be on or after start date")
	}

	if !s.AllDay {
		start, startErr := tzutil.ParseClock(s.StartTime)
		end, endErr := tzutil.ParseClock(s.EndTime)
		if startErr != nil {
			v.Add("start_time", "start time is required")
		}
		if endErr != nil {
			v.Add("end_time", "end time is required")
		}
		if startErr == nil && endErr == nil && s.StartDate == s.EndDate && end <= start {
			v.Add("end_time", "end time must be after start time")
		}
	}

	for _, a := range f.Attendees() {
		if !model.CheckField(v, "attendees", a.Email, "email", fmt.Sprintf("%q is not a valid email address", a.Email)) {
			break
		}
	}
	for _, m := range f.Reminders {
		if !reminderOffered(m) {
			v.Add("reminders", fmt.Sprintf("%d minutes is not an offered reminder", m))
			break
		}
	}
	return v.OrNil()
}

func validDate(d string) bool {
	_, err := time.Parse(tzutil.DateLayout, d)
	return err == nil
}

// Payload serialises the form for submission.
func (f Form) Payload() (model.EventPayload, error) {
	startAt, endAt, err := f.Schedule.Bounds()
	if err != nil {
		return model.EventPayload{}, err
	}
	send := f.SendInvitations
	p := model.EventPayload{
		Title:              strings.TrimSpace(f.Title),
		Type:               f.Type,
		Description:        f.Description,
		Location:           f.Location,
		VirtualMeetingLink: f.VirtualMeetingLink,
		DepartmentIDs:      f.DepartmentIDs,
		Equipment:          f.Equipment,
		MeetingRoom:        f.MeetingRoom,
		CateringRequired:   f.CateringRequired,
		Priority:           f.Priority,
		Status:             f.Status,
		AllDay:             f.Schedule.AllDay,
		StartAt:            startAt,
		EndAt:              endAt,
		TZ:                 f.Schedule.TimeZone,
		RRule:              f.RRule,
		SendInvitations:    &send,
		Attendees:          f.Attendees(),
	}
	if p.DepartmentIDs == nil {
		p.DepartmentIDs = []int64{}
	}
	if p.Attendees == nil {
		p.Attendees = []model.Attendee{}
	}
	p.Reminders = make([]model.Reminder, 0, len(f.Reminders))
	for _, m := range f.Reminders {
		p.Reminders = append(p.Reminders, model.Reminder{MinutesBefore: m, Method: model.MethodEmail})
	}
	return p, nil
}
