package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gin-gonic/gin"

	"compliance-calendar/internal/model"
	"compliance-calendar/internal/tzutil"
)

const icsProductID = "-//compliance-calendar//events//EN"

// BuildCalendar renders events as an iCalendar feed.
func BuildCalendar(events []model.Event, name string, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range events {
		ev := cal.AddEvent(eventUID(e))
		ev.SetDtStampTime(stamp)
		ev.SetCreatedTime(e.CreatedAt)
		ev.SetModifiedAt(e.UpdatedAt)
		if e.AllDay {
			// DATE values are the calendar days in the event's own zone.
			loc, err := tzutil.LoadLocation(tzutil.Resolve(e.TZ, "UTC"))
			if err != nil {
				loc = time.UTC
			}
			ev.SetAllDayStartAt(e.StartAt.In(loc))
			ev.SetAllDayEndAt(e.EndAt.In(loc))
		} else {
			ev.SetStartAt(e.StartAt)
			ev.SetEndAt(e.EndAt)
		}
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if loc := eventLocation(e); loc != "" {
			ev.SetLocation(loc)
		}
		if e.VirtualMeetingLink != "" {
			ev.SetURL(e.VirtualMeetingLink)
		}
		ev.SetProperty(ics.ComponentPropertyCategories, string(e.Type))
		ev.SetProperty(ics.ComponentPropertyPriority, icsPriority(e.Priority))
		ev.SetStatus(icsStatus(e.Status))
		if e.RRule != "" {
			ev.AddProperty(ics.ComponentPropertyRrule, strings.TrimPrefix(e.RRule, "RRULE:"))
		}
		for _, a := range e.Attendees {
			if a.Email == "" {
				continue
			}
			role := ics.ParticipationRoleOptParticipant
			if a.Required {
				role = ics.ParticipationRoleReqParticipant
			}
			ev.AddAttendee(a.Email, role)
		}
		for _, r := range e.Reminders {
			alarm := ev.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", r.MinutesBefore))
		}
	}
	return cal
}

// eventUID is unique per event and per expanded occurrence.
func eventUID(e model.Event) string {
	return fmt.Sprintf("event-%d-%s@compliance-calendar", e.ID, e.StartAt.UTC().Format("20060102T150405Z"))
}

func eventLocation(e model.Event) string {
	switch {
	case e.Location != "" && e.MeetingRoom != "":
		return e.Location + " (" + e.MeetingRoom + ")"
	case e.Location != "":
		return e.Location
	default:
		return e.MeetingRoom
	}
}

// icsPriority maps onto the RFC 5545 scale where 1 is highest.
func icsPriority(p model.Priority) string {
	switch p {
	case model.PriorityCritical:
		return "1"
	case model.PriorityHigh:
		return "3"
	case model.PriorityLow:
		return "9"
	default:
		return "5"
	}
}

func icsStatus(s model.Status) ics.ObjectStatus {
	if s == model.StatusCancelled {
		return ics.ObjectStatusCancelled
	}
	return ics.ObjectStatusConfirmed
}

// GET /api/calendar/events.ics
// Accepts the same filters as the JSON listing.
func (a *App) ExportICSHandler(c *gin.Context) {
	events, expanded, ok := a.listEvents(c)
	if !ok {
		return
	}
	if expanded {
		// occurrences are already materialized
		for i := range events {
			events[i].RRule = ""
		}
	}
	cal := BuildCalendar(events, "Compliance Calendar", a.now())
	c.Header("Content-Disposition", `attachment; filename="calendar.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal.Serialize()))
}
