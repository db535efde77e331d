// Package schedule keeps the zone-local start/end fields of an event
// consistent while they are edited and converts them to absolute instants.
package schedule

import (
	"time"

	"compliance-calendar/internal/tzutil"
)

// EndTimeBuffer is how far past the start an end time is pushed when an
// edit leaves it at or before the start on the same day.
const EndTimeBuffer = 30

const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "10:00"
)

// Schedule is the zone-local part of an event. Dates are YYYY-MM-DD and
// times HH:MM; times are empty for all-day events.
type Schedule struct {
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time,omitempty"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time,omitempty"`
	AllDay    bool   `json:"all_day"`
	TimeZone  string `json:"time_zone"`
}

// New returns the schedule a fresh event starts with: today in tz.
func New(now time.Time, tz string) Schedule {
	today := tzutil.TodayInTimeZone(now, tz)
	return Schedule{
		StartDate: today,
		StartTime: DefaultStartTime,
		EndDate:   today,
		EndTime:   DefaultEndTime,
		TimeZone:  tz,
	}
}

// FromInstants decomposes stored instants into fields local to tz.
func FromInstants(startAt, endAt time.Time, allDay bool, tz string) Schedule {
	s := Schedule{
		StartDate: tzutil.FormatTime(startAt, tz, tzutil.DateLayout),
		EndDate:   tzutil.FormatTime(endAt, tz, tzutil.DateLayout),
		AllDay:    allDay,
		TimeZone:  tz,
	}
	if allDay {
		if endAt.After(startAt) {
			if prev, err := tzutil.AddDays(s.EndDate, -1); err == nil {
				s.EndDate = prev
			}
		}
		return Reconcile(s)
	}
	s.StartTime = tzutil.FormatTime(startAt, tz, tzutil.ClockLayout)
	s.EndTime = tzutil.FormatTime(endAt, tz, tzutil.ClockLayout)
	return s
}

// Reconcile re-derives the end fields after any edit:
//
//  1. the end date never precedes the start date;
//  2. on a timed single-day event the end time is strictly after the start
//     time, pushed to start+EndTimeBuffer (rolling into the next day) when not;
//  3. all-day events carry no times.
//
// Fields that do not parse are left as they are; validation reports them.
func Reconcile(s Schedule) Schedule {
	if s.StartDate != "" && s.EndDate != "" && s.EndDate < s.StartDate {
		s.EndDate = s.StartDate
	}

	if s.AllDay {
		s.StartTime = ""
		s.EndTime = ""
		return s
	}

	if s.StartDate == "" || s.StartDate != s.EndDate {
		return s
	}
	start, err := tzutil.ParseClock(s.StartTime)
	if err != nil {
		return s
	}
	end, err := tzutil.ParseClock(s.EndTime)
	if err == nil && end > start {
		return s
	}
	if err != nil && s.EndTime != "" {
		return s
	}

	adjusted := start + EndTimeBuffer
	if adjusted >= tzutil.MinutesPerDay {
		adjusted -= tzutil.MinutesPerDay
		next, err := tzutil.AddDays(s.EndDate, 1)
		if err != nil {
			return s
		}
		s.EndDate = next
	}
	s.EndTime = tzutil.FormatClock(adjusted)
	return s
}

func (s Schedule) WithStartDate(v string) Schedule { s.StartDate = v; return Reconcile(s) }
func (s Schedule) WithStartTime(v string) Schedule { s.StartTime = v; return Reconcile(s) }
func (s Schedule) WithEndDate(v string) Schedule   { s.EndDate = v; return Reconcile(s) }
func (s Schedule) WithEndTime(v string) Schedule   { s.EndTime = v; return Reconcile(s) }
func (s Schedule) WithTimeZone(v string) Schedule  { s.TimeZone = v; return Reconcile(s) }

// WithAllDay toggles the all-day flag. Turning it off restores the default
// working hours so the times are never empty on a timed event.
func (s Schedule) WithAllDay(v bool) Schedule {
	s.AllDay = v
	if !v {
		if s.StartTime == "" {
			s.StartTime = DefaultStartTime
		}
		if s.EndTime == "" {
			s.EndTime = DefaultEndTime
		}
	}
	return Reconcile(s)
}

// Bounds converts the schedule to absolute instants. All-day events run
// from start-date midnight to the midnight after the end date, so a
// single-day all-day event still has end after start.
func (s Schedule) Bounds() (startAt, endAt time.Time, err error) {
	if s.AllDay {
		endDate, err := tzutil.AddDays(s.EndDate, 1)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if startAt, err = tzutil.ZonedDateTimeToUTC(s.StartDate, "", s.TimeZone); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if endAt, err = tzutil.ZonedDateTimeToUTC(endDate, "", s.TimeZone); err != nil {
			return time.Time{}, time.Time{}, err
		}
		return startAt, endAt, nil
	}
	if startAt, err = tzutil.ZonedDateTimeToUTC(s.StartDate, s.StartTime, s.TimeZone); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endAt, err = tzutil.ZonedDateTimeToUTC(s.EndDate, s.EndTime, s.TimeZone); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startAt, endAt, nil
}
