package app

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"compliance-calendar/internal/model"
)

// exerciseStore runs the behaviour every EventStore must share.
func exerciseStore(t *testing.T, s EventStore) {
	ctx := context.Background()
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	uid := int64(12)

	e := model.Event{
		Title: "Store audit", Type: model.TypeAudit, Priority: model.PriorityHigh, Status: model.StatusScheduled,
		StartAt: start, EndAt: start.Add(time.Hour), TZ: "Europe/Berlin", OrganizerID: 7,
		DepartmentIDs: []int64{1, 2}, Equipment: []string{"projector"}, SendInvitations: true,
		Attendees: []model.AttendeeRecord{
			{Attendee: model.Attendee{Email: "a@example.com", Required: true}, Status: model.AttendeeInvited},
			{Attendee: model.Attendee{UserID: &uid}, Status: model.AttendeeInvited},
		},
		Reminders: []model.ReminderRecord{{MinutesBefore: 30, Method: model.MethodEmail}},
	}
	if err := s.CreateEvent(ctx, &e); err != nil {
		t.Fatal(err)
	}
	if e.ID == 0 || e.Attendees[0].ID == 0 || e.Reminders[0].ID == 0 {
		t.Fatalf("ids not assigned: %+v", e)
	}

	got, err := s.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != e.Title || len(got.Attendees) != 2 || got.Attendees[1].UserID == nil || *got.Attendees[1].UserID != 12 {
		t.Fatalf("round trip %+v", got)
	}

	weekly := model.Event{
		Title: "Weekly sync", Type: model.TypeMeeting, Priority: model.PriorityLow, Status: model.StatusScheduled,
		StartAt: start.AddDate(0, 0, -28), EndAt: start.AddDate(0, 0, -28).Add(30 * time.Minute), TZ: "UTC",
		OrganizerID: 8, RRule: "FREQ=WEEKLY", DepartmentIDs: []int64{3},
	}
	if err := s.CreateEvent(ctx, &weekly); err != nil {
		t.Fatal(err)
	}

	from, to := start.Add(-time.Hour), start.Add(2*time.Hour)
	cases := []struct {
		name string
		q    EventQuery
		want int
	}{
		{"all", EventQuery{}, 2},
		{"window", EventQuery{Start: &from, End: &to}, 1},
		{"window with series", EventQuery{Start: &from, End: &to, KeepRecurring: true}, 2},
		{"departments", EventQuery{Departments: []int64{2, 9}}, 1},
		{"types", EventQuery{Types: []model.EventType{model.TypeMeeting}}, 1},
		{"priorities", EventQuery{Priorities: []model.Priority{model.PriorityHigh, model.PriorityCritical}}, 1},
		{"organizer", EventQuery{OrganizerID: &weekly.OrganizerID}, 1},
	}
	for _, tc := range cases {
		events, err := s.ListEvents(ctx, tc.q)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(events) != tc.want {
			t.Errorf("%s: got %d events, want %d", tc.name, len(events), tc.want)
		}
	}

	got.Title = "Store audit (rescheduled)"
	got.Reminders = []model.ReminderRecord{{MinutesBefore: 60, Method: model.MethodSMS}}
	if err := s.UpdateEvent(ctx, &got, false, true); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetEvent(ctx, e.ID)
	if got.Title != "Store audit (rescheduled)" || len(got.Attendees) != 2 || len(got.Reminders) != 1 || got.Reminders[0].Method != model.MethodSMS {
		t.Fatalf("after update %+v", got)
	}

	due, err := s.DueReminders(ctx, start.Add(-59*time.Minute))
	if err != nil || len(due) != 1 || due[0].EventID != e.ID || len(due[0].Attendees) != 2 {
		t.Fatalf("due %+v, %v", due, err)
	}
	if err := s.MarkReminderSent(ctx, due[0].Reminder.ID, start.Add(-59*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if due, _ := s.DueReminders(ctx, start.Add(-30*time.Minute)); len(due) != 0 {
		t.Fatalf("sent reminder is still due: %+v", due)
	}

	if err := s.DeleteEvent(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetEvent(ctx, e.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if err := s.DeleteEvent(ctx, e.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if err := s.UpdateEvent(ctx, &got, false, false); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("update after delete: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

// CALENDAR_TEST_DATABASE_URL points at a disposable database; its calendar
// tables are emptied first.
func TestPGStore(t *testing.T) {
	dsn := os.Getenv("CALENDAR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CALENDAR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPGStore(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DB.Exec(ctx, `TRUNCATE calendar_events RESTART IDENTITY CASCADE`); err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}
