package app

import (
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"compliance-calendar/internal/model"
	"compliance-calendar/internal/tzutil"
)

const (
	// maxOccurrences caps the instances produced per recurring event.
	maxOccurrences = 1000
	// maxRuleSteps caps how far a rule is walked looking for the window.
	maxRuleSteps = 500000
)

func parseRule(rule string, dtstart time.Time) (*rrule.RRule, error) {
	r, err := rrule.StrToRRule(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if err != nil {
		return nil, err
	}
	r.DTStart(dtstart)
	return r, nil
}

// ExpandRecurrence replaces each recurring event with its occurrences in
// [start, end]. A missing bound falls back to the event's own start or end.
// Occurrences keep the event id and duration and are computed in the
// event's zone. The result is ordered by start.
func ExpandRecurrence(events []model.Event, start, end *time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.RRule == "" {
			out = append(out, e)
			continue
		}
		loc, err := tzutil.LoadLocation(e.TZ)
		if err != nil {
			loc = time.UTC
		}
		rule, err := parseRule(e.RRule, e.StartAt.In(loc))
		if err != nil {
			out = append(out, e)
			continue
		}
		from, to := e.StartAt, e.EndAt
		if start != nil {
			from = *start
		}
		if end != nil {
			to = *end
		}
		duration := e.EndAt.Sub(e.StartAt)
		for _, dt := range between(rule, from.In(loc), to.In(loc)) {
			inst := e
			inst.StartAt = dt.UTC()
			inst.EndAt = dt.Add(duration).UTC()
			out = append(out, inst)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

// between returns the occurrences in [from, to], stopping at
// maxOccurrences instead of materialising the whole window.
func between(rule *rrule.RRule, from, to time.Time) []time.Time {
	var out []time.Time
	next := rule.Iterator()
	for steps := 0; steps < maxRuleSteps && len(out) < maxOccurrences; steps++ {
		dt, ok := next()
		if !ok || dt.After(to) {
			break
		}
		if !dt.Before(from) {
			out = append(out, dt)
		}
	}
	return out
}

func validateRule(v *model.ValidationError, rule string) {
	if strings.TrimSpace(rule) == "" {
		return
	}
	if _, err := parseRule(rule, time.Now()); err != nil {
		v.Add("rrule", "rrule is not a valid RFC 5545 recurrence rule")
	}
}
