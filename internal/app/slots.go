package app

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-calendar/internal/model"
	"compliance-calendar/internal/tzutil"
)

// maxSlotWindowDays bounds one free-slot search.
const maxSlotWindowDays = 31

// SlotRule describes the working window to carve into slots.
type SlotRule struct {
	FromDate  string // inclusive, YYYY-MM-DD in TZ
	ToDate    string // inclusive
	TZ        string
	WorkStart string // HH:MM
	WorkEnd   string // HH:MM
	SlotLen   time.Duration
	AvoidDays []time.Weekday
}

// GenerateFreeSlots expands the working window of each day into fixed
// length slots and drops those overlapping a busy, non-cancelled event.
// Day boundaries and working hours are taken in the rule's zone.
func GenerateFreeSlots(rule SlotRule, busy []model.Event) ([]model.Slot, error) {
	startMin, err := tzutil.ParseClock(rule.WorkStart)
	if err != nil {
		return nil, err
	}
	endMin, err := tzutil.ParseClock(rule.WorkEnd)
	if err != nil {
		return nil, err
	}
	if endMin <= startMin {
		return nil, fmt.Errorf("work_end must be after work_start")
	}
	if rule.SlotLen <= 0 {
		return nil, fmt.Errorf("slot length must be positive")
	}
	from, err := time.Parse(tzutil.DateLayout, rule.FromDate)
	if err != nil {
		return nil, tzutil.ErrInvalidDate
	}
	to, err := time.Parse(tzutil.DateLayout, rule.ToDate)
	if err != nil {
		return nil, tzutil.ErrInvalidDate
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end_date must not be before start_date")
	}

	slots := []model.Slot{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if containsAny(rule.AvoidDays, day.Weekday()) {
			continue
		}
		date := day.Format(tzutil.DateLayout)
		dayStart, err := tzutil.ZonedDateTimeToUTC(date, tzutil.FormatClock(startMin), rule.TZ)
		if err != nil {
			return nil, err
		}
		dayEnd, err := tzutil.ZonedDateTimeToUTC(date, tzutil.FormatClock(endMin), rule.TZ)
		if err != nil {
			return nil, err
		}
		for s := dayStart; !s.Add(rule.SlotLen).After(dayEnd); s = s.Add(rule.SlotLen) {
			e := s.Add(rule.SlotLen)
			if overlapsBusy(s, e, busy) {
				continue
			}
			slots = append(slots, model.Slot{
				StartUTC: s,
				EndUTC:   e,
				Date:     date,
				Start:    tzutil.FormatTime(s, rule.TZ, tzutil.ClockLayout),
				End:      tzutil.FormatTime(e, rule.TZ, tzutil.ClockLayout),
			})
		}
	}
	return slots, nil
}

func overlapsBusy(start, end time.Time, busy []model.Event) bool {
	for _, b := range busy {
		if b.Status == model.StatusCancelled {
			continue
		}
		if b.StartAt.Before(end) && start.Before(b.EndAt) {
			return true
		}
	}
	return false
}

// GET /api/calendar/free-slots?start_date=&end_date=&tz=&work_start=&work_end=&slot_minutes=&avoid_days=&mine=
func (a *App) FreeSlotsHandler(c *gin.Context) {
	tz := tzutil.Resolve(c.Query("tz"), a.timeZone())
	if _, err := tzutil.LoadLocation(tz); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tz is not a known time zone"})
		return
	}
	today := tzutil.TodayInTimeZone(a.now(), tz)
	rule := SlotRule{
		FromDate:  c.DefaultQuery("start_date", today),
		TZ:        tz,
		WorkStart: c.DefaultQuery("work_start", "09:00"),
		WorkEnd:   c.DefaultQuery("work_end", "17:00"),
	}
	rule.ToDate = c.DefaultQuery("end_date", rule.FromDate)
	mins, err := strconv.Atoi(c.DefaultQuery("slot_minutes", "30"))
	if err != nil || mins <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot_minutes must be a positive integer"})
		return
	}
	rule.SlotLen = time.Duration(mins) * time.Minute
	for _, d := range strings.Split(c.Query("avoid_days"), ",") {
		if d = strings.TrimSpace(d); d == "" {
			continue
		}
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 || n > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avoid_days must be weekday numbers 0-6"})
			return
		}
		rule.AvoidDays = append(rule.AvoidDays, time.Weekday(n))
	}

	windowStart, err := tzutil.ZonedDateTimeToUTC(rule.FromDate, "", tz)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	next, err := tzutil.AddDays(rule.ToDate, 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}
	windowEnd, err := tzutil.ZonedDateTimeToUTC(next, "", tz)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}
	if windowEnd.Sub(windowStart) > maxSlotWindowDays*24*time.Hour+time.Hour {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("date range may span at most %d days", maxSlotWindowDays)})
		return
	}

	q := EventQuery{Start: &windowStart, End: &windowEnd, KeepRecurring: true}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		id := currentUser(c).UserID
		q.OrganizerID = &id
	}
	busy, err := a.Store.ListEvents(c.Request.Context(), q)
	if err != nil {
		a.fail(c, err)
		return
	}
	busy = ExpandRecurrence(busy, &windowStart, &windowEnd)

	slots, err := GenerateFreeSlots(rule, busy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.FreeSlots{TZ: tz, Slots: slots, Count: len(slots)})
}
