package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"compliance-calendar/internal/model"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []DueReminder
	fail map[int64]bool
}

func (n *recordingNotifier) Notify(_ context.Context, r DueReminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[r.EventID] {
		return errors.New("gateway down")
	}
	n.got = append(n.got, r)
	return nil
}

func seedReminders(t *testing.T, store *MemoryStore) (soon, later, cancelled model.Event) {
	t.Helper()
	ctx := context.Background()
	mk := func(title string, start time.Time, status model.Status, minutes ...int) model.Event {
		e := model.Event{
			Title: title, Type: model.TypeMeeting, Status: status, TZ: "UTC",
			StartAt: start, EndAt: start.Add(time.Hour), OrganizerID: 7,
			Attendees: []model.AttendeeRecord{{Attendee: model.Attendee{Email: "team@example.com"}}},
		}
		for _, m := range minutes {
			e.Reminders = append(e.Reminders, model.ReminderRecord{MinutesBefore: m, Method: model.MethodEmail})
		}
		if err := store.CreateEvent(ctx, &e); err != nil {
			t.Fatal(err)
		}
		return e
	}
	soon = mk("Soon", testNow.Add(20*time.Minute), model.StatusScheduled, 30, 10)
	later = mk("Later", testNow.Add(48*time.Hour), model.StatusScheduled, 60)
	cancelled = mk("Dropped", testNow.Add(5*time.Minute), model.StatusCancelled, 15)
	return soon, later, cancelled
}

func TestDispatcherRunOnce(t *testing.T) {
	store := NewMemoryStore()
	soon, _, _ := seedReminders(t, store)
	notifier := &recordingNotifier{}
	d := NewDispatcher(store, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.Now = func() time.Time { return testNow }

	n, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// only the 30 minute reminder of "Soon" has fired
	if n != 1 || len(notifier.got) != 1 {
		t.Fatalf("sent %d, notified %d", n, len(notifier.got))
	}
	got := notifier.got[0]
	if got.EventID != soon.ID || got.Reminder.MinutesBefore != 30 || len(got.Attendees) != 1 {
		t.Fatalf("reminder %+v", got)
	}

	if n, _ := d.RunOnce(context.Background()); n != 0 {
		t.Fatalf("reminder sent twice: %d", n)
	}

	d.Now = func() time.Time { return testNow.Add(15 * time.Minute) }
	if n, _ := d.RunOnce(context.Background()); n != 1 {
		t.Fatalf("10 minute reminder not sent: %d", n)
	}
	e, _ := store.GetEvent(context.Background(), soon.ID)
	for _, r := range e.Reminders {
		if r.SentAt == nil {
			t.Fatalf("reminder %d not marked", r.ID)
		}
	}
}

func TestDispatcherKeepsFailedReminders(t *testing.T) {
	store := NewMemoryStore()
	soon, _, _ := seedReminders(t, store)
	notifier := &recordingNotifier{fail: map[int64]bool{soon.ID: true}}
	d := NewDispatcher(store, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.Now = func() time.Time { return testNow }

	n, err := d.RunOnce(context.Background())
	if err == nil || n != 0 {
		t.Fatalf("sent %d, err %v", n, err)
	}
	due, _ := store.DueReminders(context.Background(), testNow)
	if len(due) != 1 {
		t.Fatalf("failed reminder should stay pending, got %d", len(due))
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	err := n.Notify(context.Background(), DueReminder{
		Reminder: model.ReminderRecord{ID: 1, MinutesBefore: 15, Method: model.MethodSMS},
		EventID:  3, Title: "Audit", StartAt: testNow, TZ: "Europe/Berlin",
		Attendees: []model.AttendeeRecord{{Attendee: model.Attendee{Email: "a@example.com"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`"event_id":3`, `"method":"SMS"`, `a@example.com`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %s missing %s", out, want)
		}
	}
}

func TestDispatcherStartRejectsBadSpec(t *testing.T) {
	d := NewDispatcher(NewMemoryStore(), nil, nil)
	if err := d.Start("every now and then"); err == nil {
		t.Fatal("expected error")
	}
	d.Stop()

	if err := d.Start("@every 1h"); err != nil {
		t.Fatal(err)
	}
	d.Stop()
}
