package app

import (
	"testing"
	"time"

	"compliance-calendar/internal/model"
)

func TestExpandRecurrenceKeepsWallClockAcrossDST(t *testing.T) {
	// 09:00 New York, weekly across the November switch
	start := time.Date(2025, 10, 27, 13, 0, 0, 0, time.UTC)
	e := model.Event{ID: 9, TZ: "America/New_York", StartAt: start, EndAt: start.Add(45 * time.Minute), RRule: "RRULE:FREQ=WEEKLY;COUNT=3"}

	got := ExpandRecurrence([]model.Event{e}, nil, ptr(start.AddDate(0, 1, 0)))
	if len(got) != 3 {
		t.Fatalf("occurrences %d", len(got))
	}
	ny, _ := time.LoadLocation("America/New_York")
	for _, o := range got {
		if o.ID != 9 || o.StartAt.In(ny).Hour() != 9 || o.EndAt.Sub(o.StartAt) != 45*time.Minute {
			t.Fatalf("occurrence %v (%v)", o.StartAt, o.StartAt.In(ny))
		}
	}
	if got[2].StartAt.Hour() != 14 {
		t.Fatalf("post-DST occurrence should be 14:00 UTC, got %v", got[2].StartAt)
	}
}

func TestExpandRecurrenceOrdersAndPassesThrough(t *testing.T) {
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: 1, TZ: "UTC", StartAt: day, EndAt: day.Add(time.Hour), RRule: "FREQ=DAILY;INTERVAL=2"},
		{ID: 2, TZ: "UTC", StartAt: day.Add(26 * time.Hour), EndAt: day.Add(27 * time.Hour)},
		{ID: 3, TZ: "UTC", StartAt: day, EndAt: day.Add(time.Hour), RRule: "nonsense"},
	}
	got := ExpandRecurrence(events, ptr(day), ptr(day.AddDate(0, 0, 4)))
	var ids []int64
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	// series 1 on the 1st, 3rd and 5th; broken rules stay as stored
	want := []int64{1, 3, 2, 1, 1}
	if len(ids) != len(want) {
		t.Fatalf("ids %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids %v want %v", ids, want)
		}
	}
}

func TestExpandRecurrenceCapsOccurrences(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	e := model.Event{TZ: "UTC", StartAt: start, EndAt: start.Add(time.Minute), RRule: "FREQ=HOURLY"}
	got := ExpandRecurrence([]model.Event{e}, ptr(start), ptr(start.AddDate(1, 0, 0)))
	if len(got) != maxOccurrences {
		t.Fatalf("occurrences %d", len(got))
	}
}

func TestExpandRecurrenceStopsEarlyOnDenseRules(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := model.Event{ID: 4, TZ: "UTC", StartAt: start, EndAt: start.Add(time.Minute), RRule: "FREQ=MINUTELY"}
	from := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ExpandRecurrence([]model.Event{e}, &from, ptr(start.AddDate(50, 0, 0)))
	if len(got) != maxOccurrences {
		t.Fatalf("occurrences %d", len(got))
	}
	if !got[0].StartAt.Equal(from) || !got[len(got)-1].StartAt.Equal(from.Add((maxOccurrences-1)*time.Minute)) {
		t.Fatalf("first %s last %s", got[0].StartAt, got[len(got)-1].StartAt)
	}

	// Bounded rules end on their own.
	e.RRule = "FREQ=DAILY;COUNT=3"
	if got := ExpandRecurrence([]model.Event{e}, &start, ptr(start.AddDate(1, 0, 0))); len(got) != 3 {
		t.Fatalf("count rule gave %d", len(got))
	}
}

func TestValidateRule(t *testing.T) {
	v := model.NewValidationError()
	validateRule(v, "FREQ=MONTHLY;BYMONTHDAY=1")
	validateRule(v, "")
	if v.OrNil() != nil {
		t.Fatalf("valid rules flagged: %v", v)
	}
	validateRule(v, "FREQ=FORTNIGHTLY")
	if v.FieldErrors["rrule"] == "" {
		t.Fatal("invalid rule accepted")
	}
}

func TestPrincipalCanManage(t *testing.T) {
	for role, want := range map[string]bool{"admin": true, "Super_Admin": true, "employee": false, "": false} {
		if got := (Principal{Role: role}).CanManage(); got != want {
			t.Errorf("%q: got %v", role, got)
		}
	}
}

func ptr[T any](v T) *T { return &v }
