// Package model holds the calendar event wire contract shared by the
// service and its clients.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	TitleMinLen = 2
	TitleMaxLen = 200

	// MaxReminderMinutes is seven days.
	MaxReminderMinutes = 7 * 24 * 60
)

type Attendee struct {
	UserID   *int64 `json:"user_id,omitempty" validate:"required_without=Email"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Required bool   `json:"required"`
}

// Reminder decodes from either a bare number of minutes or an object.
type Reminder struct {
	MinutesBefore int            `json:"minutes_before" validate:"min=0,max=10080"`
	Method        ReminderMethod `json:"method" validate:"omitempty,enum"`
	CustomMessage string         `json:"custom_message,omitempty"`
}

func (r *Reminder) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var minutes int
		if err := json.Unmarshal(data, &minutes); err != nil {
			return ErrInvalidReminder
		}
		*r = Reminder{MinutesBefore: minutes, Method: MethodEmail}
		return nil
	}
	var raw struct {
		MinutesBefore *int           `json:"minutes_before"`
		Method        ReminderMethod `json:"method"`
		CustomMessage string         `json:"custom_message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidReminder
	}
	if raw.MinutesBefore == nil || raw.Method == "" {
		return ErrInvalidReminder
	}
	*r = Reminder{MinutesBefore: *raw.MinutesBefore, Method: raw.Method, CustomMessage: raw.CustomMessage}
	return nil
}

// EventPayload is the body of POST /api/calendar/events and
// PUT /api/calendar/events/{id} as sent by the event sheet.
type EventPayload struct {
	Title              string     `json:"title" validate:"min=2,max=200"`
	Type               EventType  `json:"type" validate:"enum"`
	Description        string     `json:"description"`
	Location           string     `json:"location"`
	VirtualMeetingLink string     `json:"virtual_meeting_link,omitempty"`
	DepartmentIDs      []int64    `json:"department_ids"`
	Equipment          []string   `json:"equipment,omitempty"`
	MeetingRoom        string     `json:"meeting_room,omitempty"`
	CateringRequired   bool       `json:"catering_required,omitempty"`
	Priority           Priority   `json:"priority" validate:"omitempty,enum"`
	Status             Status     `json:"status" validate:"omitempty,enum"`
	AllDay             bool       `json:"all_day"`
	StartAt            time.Time  `json:"start_at"`
	EndAt              time.Time  `json:"end_at"`
	TZ                 string     `json:"tz" validate:"omitempty,timezone"`
	RRule              string     `json:"rrule,omitempty"`
	SendInvitations    *bool      `json:"send_invitations,omitempty"`
	Attendees          []Attendee `json:"attendees" validate:"dive"`
	Reminders          []Reminder `json:"reminders" validate:"dive"`
}

// Normalize fills the defaults the service applies to omitted fields.
// defaultTZ is used when the payload names no zone.
func (p *EventPayload) Normalize(defaultTZ string) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if p.Status == "" {
		p.Status = StatusScheduled
	}
	if strings.TrimSpace(p.TZ) == "" {
		p.TZ = defaultTZ
	}
	if p.SendInvitations == nil {
		yes := true
		p.SendInvitations = &yes
	}
	for i := range p.Reminders {
		if p.Reminders[i].Method == "" {
			p.Reminders[i].Method = MethodEmail
		}
	}
}

// Validate checks the payload the way the service does before persisting.
func (p EventPayload) Validate() error {
	v := NewValidationError()
	p.Title = strings.TrimSpace(p.Title)
	p.TZ = strings.TrimSpace(p.TZ)
	addStructErrors(v, validate.Struct(p))
	if p.StartAt.IsZero() {
		v.Add("start_at", "start_at is required")
	}
	if p.EndAt.IsZero() {
		v.Add("end_at", "end_at is required")
	}
	if !p.StartAt.IsZero() && !p.EndAt.IsZero() && !p.EndAt.After(p.StartAt) {
		v.Add("end_at", "end_at must be after start_at")
	}
	return v.OrNil()
}

// EventPatch is a partial update. Nil fields are left untouched; non-nil
// attendee and reminder lists replace the stored ones.
type EventPatch struct {
	Title              *string     `json:"title"`
	Type               *EventType  `json:"type"`
	Description        *string     `json:"description"`
	Location           *string     `json:"location"`
	VirtualMeetingLink *string     `json:"virtual_meeting_link"`
	DepartmentIDs      *[]int64    `json:"department_ids"`
	Equipment          *[]string   `json:"equipment"`
	MeetingRoom        *string     `json:"meeting_room"`
	CateringRequired   *bool       `json:"catering_required"`
	Priority           *Priority   `json:"priority"`
	Status             *Status     `json:"status"`
	AllDay             *bool       `json:"all_day"`
	StartAt            *time.Time  `json:"start_at"`
	EndAt              *time.Time  `json:"end_at"`
	TZ                 *string     `json:"tz"`
	RRule              *string     `json:"rrule"`
	SendInvitations    *bool       `json:"send_invitations"`
	Attendees          *[]Attendee `json:"attendees"`
	Reminders          *[]Reminder `json:"reminders"`
}

// Apply merges the patch into e and returns whether attendees and reminders
// were replaced.
func (p EventPatch) Apply(e *Event) (attendees, reminders bool) {
	set(&e.Title, p.Title)
	set(&e.Type, p.Type)
	set(&e.Description, p.Description)
	set(&e.Location, p.Location)
	set(&e.VirtualMeetingLink, p.VirtualMeetingLink)
	set(&e.DepartmentIDs, p.DepartmentIDs)
	set(&e.Equipment, p.Equipment)
	set(&e.MeetingRoom, p.MeetingRoom)
	set(&e.CateringRequired, p.CateringRequired)
	set(&e.Priority, p.Priority)
	set(&e.Status, p.Status)
	set(&e.AllDay, p.AllDay)
	set(&e.StartAt, p.StartAt)
	set(&e.EndAt, p.EndAt)
	set(&e.TZ, p.TZ)
	set(&e.RRule, p.RRule)
	set(&e.SendInvitations, p.SendInvitations)
	if p.Attendees != nil {
		e.Attendees = make([]AttendeeRecord, 0, len(*p.Attendees))
		for _, a := range *p.Attendees {
			e.Attendees = append(e.Attendees, AttendeeRecord{Attendee: a, Status: AttendeeInvited})
		}
		attendees = true
	}
	if p.Reminders != nil {
		e.Reminders = make([]ReminderRecord, 0, len(*p.Reminders))
		for _, r := range *p.Reminders {
			e.Reminders = append(e.Reminders, NewReminderRecord(r))
		}
		reminders = true
	}
	return attendees, reminders
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

type AttendeeRecord struct {
	ID int64 `json:"id"`
	Attendee
	Status AttendeeStatus `json:"status"`
}

// ReminderRecord spells its fields out instead of embedding Reminder so the
// number-or-object decoder is not promoted onto it.
type ReminderRecord struct {
	ID            int64          `json:"id"`
	MinutesBefore int            `json:"minutes_before"`
	Method        ReminderMethod `json:"method"`
	CustomMessage string         `json:"custom_message,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
}

func NewReminderRecord(r Reminder) ReminderRecord {
	if r.Method == "" {
		r.Method = MethodEmail
	}
	return ReminderRecord{MinutesBefore: r.MinutesBefore, Method: r.Method, CustomMessage: r.CustomMessage}
}

func (r ReminderRecord) Reminder() Reminder {
	return Reminder{MinutesBefore: r.MinutesBefore, Method: r.Method, CustomMessage: r.CustomMessage}
}

// FireAt is when the reminder for an event starting at start is due.
func (r ReminderRecord) FireAt(start time.Time) time.Time {
	return start.Add(-time.Duration(r.MinutesBefore) * time.Minute)
}

// Event is a stored calendar event as returned by the service.
type Event struct {
	ID                 int64            `json:"id"`
	Title              string           `json:"title"`
	Type               EventType        `json:"type"`
	Description        string           `json:"description"`
	Location           string           `json:"location"`
	VirtualMeetingLink string           `json:"virtual_meeting_link,omitempty"`
	DepartmentIDs      []int64          `json:"department_ids"`
	Equipment          []string         `json:"equipment,omitempty"`
	MeetingRoom        string           `json:"meeting_room,omitempty"`
	CateringRequired   bool             `json:"catering_required"`
	Priority           Priority         `json:"priority"`
	Status             Status           `json:"status"`
	AllDay             bool             `json:"all_day"`
	StartAt            time.Time        `json:"start_at"`
	EndAt              time.Time        `json:"end_at"`
	TZ                 string           `json:"tz"`
	RRule              string           `json:"rrule,omitempty"`
	SendInvitations    bool             `json:"send_invitations"`
	OrganizerID        int64            `json:"organizer_id"`
	Attendees          []AttendeeRecord `json:"attendees"`
	Reminders          []ReminderRecord `json:"reminders"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
}

// NewEvent builds an unsaved event from a normalized payload.
func NewEvent(p EventPayload, organizerID int64) Event {
	e := Event{
		Title:              p.Title,
		Type:               p.Type,
		Description:        p.Description,
		Location:           p.Location,
		VirtualMeetingLink: p.VirtualMeetingLink,
		DepartmentIDs:      p.DepartmentIDs,
		Equipment:          p.Equipment,
		MeetingRoom:        p.MeetingRoom,
		CateringRequired:   p.CateringRequired,
		Priority:           p.Priority,
		Status:             p.Status,
		AllDay:             p.AllDay,
		StartAt:            p.StartAt.UTC(),
		EndAt:              p.EndAt.UTC(),
		TZ:                 p.TZ,
		RRule:              p.RRule,
		SendInvitations:    p.SendInvitations == nil || *p.SendInvitations,
		OrganizerID:        organizerID,
	}
	for _, a := range p.Attendees {
		e.Attendees = append(e.Attendees, AttendeeRecord{Attendee: a, Status: AttendeeInvited})
	}
	for _, r := range p.Reminders {
		e.Reminders = append(e.Reminders, NewReminderRecord(r))
	}
	return e
}

// Payload converts a stored event back into its editable form.
func (e Event) Payload() EventPayload {
	send := e.SendInvitations
	p := EventPayload{
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
		AllDay:             e.AllDay,
		StartAt:            e.StartAt,
		EndAt:              e.EndAt,
		TZ:                 e.TZ,
		RRule:              e.RRule,
		SendInvitations:    &send,
	}
	for _, a := range e.Attendees {
		p.Attendees = append(p.Attendees, a.Attendee)
	}
	for _, r := range e.Reminders {
		p.Reminders = append(p.Reminders, r.Reminder())
	}
	return p
}

// Stats is the dashboard summary served by /api/calendar/stats.
type Stats struct {
	Total      int            `json:"total"`
	Upcoming   int            `json:"upcoming"`
	InProgress int            `json:"in_progress"`
	Completed  int            `json:"completed"`
	Overdue    int            `json:"overdue"`
	ByType     map[string]int `json:"by_type"`
	ByPriority map[string]int `json:"by_priority"`
}
