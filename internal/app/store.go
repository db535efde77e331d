package app

import (
	"context"
	"time"

	"compliance-calendar/internal/model"
)

// EventQuery narrows ListEvents. Zero values do not filter.
type EventQuery struct {
	Start       *time.Time // events ending at or after Start
	End         *time.Time // events starting before End
	Types       []model.EventType
	Departments []int64 // any-match
	Priorities  []model.Priority
	OrganizerID *int64

	// KeepRecurring lets events with an RRULE through the Start bound so
	// later occurrences can be expanded into the window.
	KeepRecurring bool
}

// DueReminder is a reminder whose fire time has passed, with the event
// details a notifier needs.
type DueReminder struct {
	Reminder    model.ReminderRecord
	EventID     int64
	Title       string
	StartAt     time.Time
	TZ          string
	OrganizerID int64
	Attendees   []model.AttendeeRecord
}

// EventStore persists calendar events with their attendees and reminders.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	// UpdateEvent writes every column of e. Attendee and reminder rows are
	// rewritten only when the matching flag is set.
	UpdateEvent(ctx context.Context, e *model.Event, attendees, reminders bool) error
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, q EventQuery) ([]model.Event, error)

	DueReminders(ctx context.Context, now time.Time) ([]DueReminder, error)
	MarkReminderSent(ctx context.Context, reminderID int64, at time.Time) error
}

func (q EventQuery) match(e model.Event) bool {
	if q.Start != nil && e.EndAt.Before(*q.Start) && !(q.KeepRecurring && e.RRule != "") {
		return false
	}
	if q.End != nil && !e.StartAt.Before(*q.End) {
		return false
	}
	if len(q.Types) > 0 && !containsAny(q.Types, e.Type) {
		return false
	}
	if len(q.Priorities) > 0 && !containsAny(q.Priorities, e.Priority) {
		return false
	}
	if q.OrganizerID != nil && e.OrganizerID != *q.OrganizerID {
		return false
	}
	if len(q.Departments) > 0 {
		hit := false
		for _, d := range e.DepartmentIDs {
			if containsAny(q.Departments, d) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func containsAny[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
