// Package tzutil converts between absolute instants and zone-local
// date/time fields using only the IANA time zone database.
package tzutil

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// InvalidDate is what the display helpers return for input they cannot
	// interpret. Display is best-effort and never fails loudly.
	InvalidDate = "Invalid Date"

	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
	ISOLayout     = "2006-01-02T15:04:05.000Z"
	DisplayLayout = "2006-01-02 15:04"

	MinutesPerDay = 24 * 60
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidClock = errors.New("invalid time")
	ErrUnknownZone  = errors.New("unknown time zone")
)

var (
	hostOnce sync.Once
	hostZone string

	locCache sync.Map // zone name -> *time.Location
)

// HostTimeZone reports the IANA zone of the host environment. The lookup runs
// once per process; callers are expected to invoke it at a boundary and
// thread the result down.
func HostTimeZone() string {
	hostOnce.Do(func() {
		hostZone = detectHostZone()
	})
	return hostZone
}

func detectHostZone() string {
	if tz := strings.TrimSpace(os.Getenv("TZ")); tz != "" {
		tz = strings.TrimPrefix(tz, ":")
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if idx := strings.Index(target, "zoneinfo/"); idx >= 0 {
			name := target[idx+len("zoneinfo/"):]
			if _, err := time.LoadLocation(name); err == nil {
				return name
			}
		}
	}
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	return "UTC"
}

// ResolveTimeZone returns tz when it is non-blank and the host zone otherwise.
func ResolveTimeZone(tz string) string {
	return Resolve(tz)
}

// Resolve walks the fallback chain and returns the first non-blank zone,
// falling back to the host zone.
func Resolve(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return HostTimeZone()
}

// LoadLocation loads and caches a zone. A blank name resolves to the host zone.
func LoadLocation(tz string) (*time.Location, error) {
	tz = ResolveTimeZone(tz)
	if loc, ok := locCache.Load(tz); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, tz)
	}
	locCache.Store(tz, loc)
	return loc, nil
}

// ParseInstant accepts RFC 3339 timestamps (fraction optional) and bare
// dates, which are read as UTC midnight.
func ParseInstant(iso string) (time.Time, error) {
	iso = strings.TrimSpace(iso)
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t, nil
	}
	if t, err := time.Parse(DateLayout, iso); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, iso)
}

// ToDateOnly formats the zone-local calendar date of iso as YYYY-MM-DD.
func ToDateOnly(iso, tz string) string {
	return FormatInTimeZone(iso, tz, DateLayout)
}

// ToTimeOnly formats the zone-local clock time of iso as HH:MM.
func ToTimeOnly(iso, tz string) string {
	return FormatInTimeZone(iso, tz, ClockLayout)
}

// FormatInTimeZone renders iso in tz with a Go layout. An empty layout means
// DisplayLayout.
func FormatInTimeZone(iso, tz, layout string) string {
	t, err := ParseInstant(iso)
	if err != nil {
		return InvalidDate
	}
	return FormatTime(t, tz, layout)
}

// FormatTime is FormatInTimeZone for an already parsed instant.
func FormatTime(t time.Time, tz, layout string) string {
	loc, err := LoadLocation(tz)
	if err != nil {
		return InvalidDate
	}
	if layout == "" {
		layout = DisplayLayout
	}
	return t.In(loc).Format(layout)
}

// TodayInTimeZone is the zone-local date of now.
func TodayInTimeZone(now time.Time, tz string) string {
	return FormatTime(now, tz, DateLayout)
}

// FormatISO renders the absolute instant form used on the wire.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ZonedDateTimeToUTC interprets date (YYYY-MM-DD) and clock (HH:MM, empty for
// midnight) in tz and returns the absolute instant.
//
// The offset is taken from the naive reading of the fields as UTC, then
// applied as a correction. Inside the hours around a DST transition the
// naive instant can sit on the other side of the transition than the
// intended wall time, and the result is off by the transition delta.
func ZonedDateTimeToUTC(date, clock, tz string) (time.Time, error) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	minutes := 0
	if strings.TrimSpace(clock) != "" {
		if minutes, err = ParseClock(clock); err != nil {
			return time.Time{}, err
		}
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}

	naive := time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, time.UTC)
	zoned := naive.In(loc)
	zonedAsUTC := time.Date(zoned.Year(), zoned.Month(), zoned.Day(),
		zoned.Hour(), zoned.Minute(), zoned.Second(), 0, time.UTC)
	offset := zonedAsUTC.Sub(naive)
	return naive.Add(-offset), nil
}

// ParseClock returns minutes since midnight for an HH:MM string. Longer
// values such as "09:00:00" are truncated to their first five characters.
func ParseClock(clock string) (int, error) {
	clock = strings.TrimSpace(clock)
	if len(clock) < 5 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	t, err := time.Parse(ClockLayout, clock[:5])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock is the inverse of ParseClock. Values are wrapped into a day.
func FormatClock(minutes int) string {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddDays shifts a calendar date by n days.
func AddDays(date string, n int) (string, error) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return day.AddDate(0, 0, n).Format(DateLayout), nil
}
