package model

import "time"

// Match reports whether e falls in the bucket at instant now.
func (f StatusFilter) Match(e Event, now time.Time) bool {
	closed := e.Status == StatusCancelled || e.Status == StatusCompleted
	switch f {
	case FilterUpcoming:
		return e.StartAt.After(now) && e.Status != StatusCancelled
	case FilterInProgress:
		return !e.StartAt.After(now) && !now.After(e.EndAt) && !closed
	case FilterCompleted:
		return e.Status == StatusCompleted
	case FilterOverdue:
		return e.EndAt.Before(now) && !closed
	default:
		return true
	}
}

// ComputeStats summarizes events relative to now.
func ComputeStats(events []Event, now time.Time) Stats {
	s := Stats{
		Total:      len(events),
		ByType:     map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, e := range events {
		if FilterUpcoming.Match(e, now) {
			s.Upcoming++
		}
		if FilterInProgress.Match(e, now) {
			s.InProgress++
		}
		if FilterCompleted.Match(e, now) {
			s.Completed++
		}
		if FilterOverdue.Match(e, now) {
			s.Overdue++
		}
		s.ByType[string(e.Type)]++
		s.ByPriority[string(e.Priority)]++
	}
	return s
}
