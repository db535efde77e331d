package tzutil

import (
	"errors"
	"testing"
	"time"
)

func TestResolveTimeZone(t *testing.T) {
	if got := ResolveTimeZone("Asia/Kolkata"); got != "Asia/Kolkata" {
		t.Fatalf("explicit zone changed: %q", got)
	}
	host := ResolveTimeZone("")
	if host == "" {
		t.Fatal("host zone must not be empty")
	}
	if host != HostTimeZone() {
		t.Fatalf("blank zone resolved to %q, host is %q", host, HostTimeZone())
	}
	if got := ResolveTimeZone("   "); got != host {
		t.Fatalf("blank zone resolved to %q", got)
	}
}

func TestResolveFallbackChain(t *testing.T) {
	cases := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"event zone wins", []string{"Europe/Berlin", "Asia/Tokyo"}, "Europe/Berlin"},
		{"form zone when event blank", []string{"", "Asia/Tokyo"}, "Asia/Tokyo"},
		{"host when all blank", []string{"", " "}, HostTimeZone()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.candidates...); got != tc.want {
				t.Fatalf("Resolve() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestToDateAndTimeOnly(t *testing.T) {
	cases := []struct {
		iso, tz    string
		date, time string
	}{
		{"2025-03-01T18:45:00Z", "Asia/Kolkata", "2025-03-02", "00:15"},
		{"2025-03-01T18:45:00.000Z", "America/Los_Angeles", "2025-03-01", "10:45"},
		{"2025-07-01T00:30:00Z", "America/New_York", "2025-06-30", "20:30"},
		{"2025-07-01T00:30:00+02:00", "UTC", "2025-06-30", "22:30"},
		{"2025-07-01", "UTC", "2025-07-01", "00:00"},
	}
	for _, tc := range cases {
		if got := ToDateOnly(tc.iso, tc.tz); got != tc.date {
			t.Errorf("ToDateOnly(%q, %q) = %q, want %q", tc.iso, tc.tz, got, tc.date)
		}
		if got := ToTimeOnly(tc.iso, tc.tz); got != tc.time {
			t.Errorf("ToTimeOnly(%q, %q) = %q, want %q", tc.iso, tc.tz, got, tc.time)
		}
	}
}

func TestDisplayHelpersSurfaceInvalidDate(t *testing.T) {
	if got := ToDateOnly("not a date", "UTC"); got != InvalidDate {
		t.Fatalf("got %q", got)
	}
	if got := ToTimeOnly("2025-01-01T00:00:00Z", "Mars/Olympus_Mons"); got != InvalidDate {
		t.Fatalf("got %q", got)
	}
}

func TestZonedDateTimeToUTC(t *testing.T) {
	cases := []struct {
		date, clock, tz string
		want            string
	}{
		{"2025-01-15", "10:00", "Asia/Kolkata", "2025-01-15T04:30:00.000Z"},
		{"2025-01-15", "10:00", "America/New_York", "2025-01-15T15:00:00.000Z"},
		{"2025-07-15", "10:00", "America/New_York", "2025-07-15T14:00:00.000Z"},
		{"2025-07-15", "", "Europe/Berlin", "2025-07-14T22:00:00.000Z"},
		{"2025-12-31", "23:30", "Pacific/Auckland", "2025-12-31T10:30:00.000Z"},
	}
	for _, tc := range cases {
		got, err := ZonedDateTimeToUTC(tc.date, tc.clock, tc.tz)
		if err != nil {
			t.Fatalf("ZonedDateTimeToUTC(%q, %q, %q) error = %v", tc.date, tc.clock, tc.tz, err)
		}
		if s := FormatISO(got); s != tc.want {
			t.Errorf("ZonedDateTimeToUTC(%q, %q, %q) = %s, want %s", tc.date, tc.clock, tc.tz, s, tc.want)
		}
	}
}

func TestZonedDateTimeRoundTrip(t *testing.T) {
	zones := []string{"UTC", "Asia/Kolkata", "America/New_York", "Europe/London", "Australia/Sydney", "Asia/Kathmandu"}
	dates := []string{"2025-01-10", "2025-02-28", "2025-06-21", "2025-08-31", "2024-02-29"}
	clocks := []string{"00:00", "07:45", "12:00", "18:15", "23:59"}
	for _, tz := range zones {
		for _, d := range dates {
			for _, c := range clocks {
				at, err := ZonedDateTimeToUTC(d, c, tz)
				if err != nil {
					t.Fatalf("convert %s %s %s: %v", d, c, tz, err)
				}
				iso := FormatISO(at)
				if got := ToDateOnly(iso, tz); got != d {
					t.Errorf("%s %s %s: date round trip = %s", d, c, tz, got)
				}
				if got := ToTimeOnly(iso, tz); got != c {
					t.Errorf("%s %s %s: time round trip = %s", d, c, tz, got)
				}
			}
		}
	}
}

// The correction uses the offset in force at the naive instant, so wall
// times shortly after a spring-forward transition land an hour late.
func TestZonedDateTimeToUTCTransitionApproximation(t *testing.T) {
	got, err := ZonedDateTimeToUTC("2024-03-10", "04:00", "America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	if s := FormatISO(got); s != "2024-03-10T09:00:00.000Z" {
		t.Fatalf("got %s", s)
	}

	got, err = ZonedDateTimeToUTC("2024-03-10", "12:00", "America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	if s := FormatISO(got); s != "2024-03-10T16:00:00.000Z" {
		t.Fatalf("got %s", s)
	}
}

func TestZonedDateTimeToUTCErrors(t *testing.T) {
	if _, err := ZonedDateTimeToUTC("2025-13-01", "10:00", "UTC"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := ZonedDateTimeToUTC("2025-01-01", "25:00", "UTC"); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("expected ErrInvalidClock, got %v", err)
	}
	if _, err := ZonedDateTimeToUTC("2025-01-01", "10:00", "Nowhere/City"); !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone, got %v", err)
	}
}

func TestTodayInTimeZone(t *testing.T) {
	now := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)
	if got := TodayInTimeZone(now, "Asia/Tokyo"); got != "2025-05-02" {
		t.Fatalf("Tokyo today = %s", got)
	}
	if got := TodayInTimeZone(now, "America/Chicago"); got != "2025-05-01" {
		t.Fatalf("Chicago today = %s", got)
	}
}

func TestClockHelpers(t *testing.T) {
	m, err := ParseClock("09:30:00")
	if err != nil || m != 570 {
		t.Fatalf("ParseClock = %d, %v", m, err)
	}
	if got := FormatClock(1460); got != "00:20" {
		t.Fatalf("FormatClock(1460) = %s", got)
	}
	if got := FormatClock(-30); got != "23:30" {
		t.Fatalf("FormatClock(-30) = %s", got)
	}
	next, err := AddDays("2024-02-28", 1)
	if err != nil || next != "2024-02-29" {
		t.Fatalf("AddDays = %s, %v", next, err)
	}
}

func TestFormatInTimeZoneDefaultLayout(t *testing.T) {
	if got := FormatInTimeZone("2025-01-01T12:00:00Z", "Asia/Tokyo", ""); got != "2025-01-01 21:00" {
		t.Fatalf("got %q", got)
	}
}
