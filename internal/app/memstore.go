package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"compliance-calendar/internal/model"
)

// MemoryStore is an EventStore held in process memory. It backs tests and
// local runs without a database.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	events map[int64]model.Event
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: map[int64]model.Event{}, now: time.Now}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) assignChildIDs(e *model.Event) {
	for i := range e.Attendees {
		if e.Attendees[i].ID == 0 {
			e.Attendees[i].ID = s.id()
		}
	}
	for i := range e.Reminders {
		if e.Reminders[i].ID == 0 {
			e.Reminders[i].ID = s.id()
		}
	}
}

func (s *MemoryStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	now := s.now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	s.assignChildIDs(e)
	s.events[e.ID] = clone(*e)
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id int64) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, model.ErrNotFound
	}
	return clone(e), nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, e *model.Event, attendees, reminders bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.events[e.ID]
	if !ok {
		return model.ErrNotFound
	}
	if !attendees {
		e.Attendees = old.Attendees
	}
	if !reminders {
		e.Reminders = old.Reminders
	}
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = s.now().UTC()
	s.assignChildIDs(e)
	s.events[e.ID] = clone(*e)
	return nil
}

func (s *MemoryStore) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, q EventQuery) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Event{}
	for _, e := range s.events {
		if q.match(e) {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out, nil
}

func (s *MemoryStore) DueReminders(_ context.Context, now time.Time) ([]DueReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DueReminder
	for _, e := range s.events {
		if e.Status == model.StatusCancelled || !e.StartAt.After(now) {
			continue
		}
		for _, r := range e.Reminders {
			if r.SentAt != nil || r.FireAt(e.StartAt).After(now) {
				continue
			}
			out = append(out, DueReminder{
				Reminder:    r,
				EventID:     e.ID,
				Title:       e.Title,
				StartAt:     e.StartAt,
				TZ:          e.TZ,
				OrganizerID: e.OrganizerID,
				Attendees:   append([]model.AttendeeRecord(nil), e.Attendees...),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reminder.ID < out[j].Reminder.ID })
	return out, nil
}

func (s *MemoryStore) MarkReminderSent(_ context.Context, reminderID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.events {
		for i, r := range e.Reminders {
			if r.ID == reminderID {
				sent := at.UTC()
				e.Reminders[i].SentAt = &sent
				s.events[id] = e
				return nil
			}
		}
	}
	return model.ErrNotFound
}

func clone(e model.Event) model.Event {
	e.DepartmentIDs = append([]int64(nil), e.DepartmentIDs...)
	e.Equipment = append([]string(nil), e.Equipment...)
	e.Attendees = append([]model.AttendeeRecord(nil), e.Attendees...)
	e.Reminders = append([]model.ReminderRecord(nil), e.Reminders...)
	return e
}
