package app

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-calendar/internal/model"
	"compliance-calendar/internal/tzutil"
)

// bindBody decodes the request body, answering 422 for malformed reminders
// and 400 for anything else that does not decode.
func bindBody(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, model.ErrInvalidReminder) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid reminder format"})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

func validatePayload(p model.EventPayload) error {
	v := model.NewValidationError()
	var pErr *model.ValidationError
	if errors.As(p.Validate(), &pErr) {
		v = pErr
	}
	validateRule(v, p.RRule)
	return v.OrNil()
}

func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}

// POST /api/calendar/events
func (a *App) CreateEventHandler(c *gin.Context) {
	var payload model.EventPayload
	if !bindBody(c, &payload) {
		return
	}
	payload.Normalize(a.timeZone())
	if err := validatePayload(payload); err != nil {
		a.fail(c, err)
		return
	}

	user := currentUser(c)
	e := model.NewEvent(payload, user.UserID)
	if err := a.Store.CreateEvent(c.Request.Context(), &e); err != nil {
		a.fail(c, err)
		return
	}
	a.logger(c).InfoContext(c.Request.Context(), "event created", "event_id", e.ID, "organizer_id", e.OrganizerID)
	c.JSON(http.StatusCreated, e)
}

// GET /api/calendar/events/:id
func (a *App) GetEventHandler(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	e, err := a.Store.GetEvent(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// loadOwned fetches the event and checks the caller may change it.
func (a *App) loadOwned(c *gin.Context) (model.Event, bool) {
	id, ok := eventID(c)
	if !ok {
		return model.Event{}, false
	}
	e, err := a.Store.GetEvent(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return model.Event{}, false
	}
	user := currentUser(c)
	if !user.CanManage() && e.OrganizerID != user.UserID {
		a.fail(c, model.ErrForbidden)
		return model.Event{}, false
	}
	return e, true
}

// PUT /api/calendar/events/:id
// Partial update: omitted fields keep their stored values.
func (a *App) UpdateEventHandler(c *gin.Context) {
	e, ok := a.loadOwned(c)
	if !ok {
		return
	}
	var patch model.EventPatch
	if !bindBody(c, &patch) {
		return
	}
	attendees, reminders := patch.Apply(&e)
	if err := validatePayload(e.Payload()); err != nil {
		a.fail(c, err)
		return
	}
	e.Title = strings.TrimSpace(e.Title)
	e.StartAt, e.EndAt = e.StartAt.UTC(), e.EndAt.UTC()
	switch {
	case e.Status != model.StatusCancelled:
		e.CancelledAt = nil
	case e.CancelledAt == nil:
		at := a.now()
		e.CancelledAt = &at
	}

	if err := a.Store.UpdateEvent(c.Request.Context(), &e, attendees, reminders); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// DELETE /api/calendar/events/:id?hard=true
// Without hard the event is cancelled and kept.
func (a *App) DeleteEventHandler(c *gin.Context) {
	e, ok := a.loadOwned(c)
	if !ok {
		return
	}
	hard, _ := strconv.ParseBool(c.DefaultQuery("hard", "false"))
	ctx := c.Request.Context()

	var err error
	if hard {
		err = a.Store.DeleteEvent(ctx, e.ID)
	} else {
		at := a.now()
		e.Status = model.StatusCancelled
		e.CancelledAt = &at
		err = a.Store.UpdateEvent(ctx, &e, false, false)
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	a.logger(c).InfoContext(ctx, "event deleted", "event_id", e.ID, "hard", hard)
	c.Status(http.StatusNoContent)
}

// listRequest is the parsed query of GET /api/calendar/events.
type listRequest struct {
	query  EventQuery
	status model.StatusFilter
	expand bool
}

func (a *App) parseListQuery(c *gin.Context) (listRequest, error) {
	v := model.NewValidationError()
	var req listRequest

	parseBound := func(name string) *time.Time {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return nil
		}
		t, err := tzutil.ParseInstant(raw)
		if err != nil {
			v.Add(name, name+" must be an ISO 8601 date or instant")
			return nil
		}
		return &t
	}
	req.query.Start = parseBound("start")
	req.query.End = parseBound("end")

	for _, t := range splitQuery(c, "types") {
		et := model.EventType(t)
		if !et.Valid() {
			v.Add("types", "unknown event type "+t)
			continue
		}
		req.query.Types = append(req.query.Types, et)
	}
	for _, p := range splitQuery(c, "priority") {
		pr := model.Priority(p)
		if !pr.Valid() {
			v.Add("priority", "unknown priority "+p)
			continue
		}
		req.query.Priorities = append(req.query.Priorities, pr)
	}
	for _, d := range splitQuery(c, "departments") {
		id, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			v.Add("departments", "departments must be integers")
			continue
		}
		req.query.Departments = append(req.query.Departments, id)
	}

	status := c.Query("status")
	if status == "" {
		status = c.DefaultQuery("status_filter", string(model.FilterAll))
	}
	req.status = model.StatusFilter(status)
	if !req.status.Valid() {
		v.Add("status", "status must be one of All, Upcoming, In Progress, Completed, Overdue")
	}

	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		id := currentUser(c).UserID
		req.query.OrganizerID = &id
	}
	req.expand, _ = strconv.ParseBool(c.Query("expand_recurrence"))
	if req.expand && (req.query.Start != nil || req.query.End != nil) {
		req.query.KeepRecurring = true
	} else {
		req.expand = false
	}
	return req, v.OrNil()
}

// splitQuery accepts repeated keys, the key[] form and comma separated values.
func splitQuery(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range append(c.QueryArray(key), c.QueryArray(key+"[]")...) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// listEvents runs the filtered listing and reports whether recurring
// events were expanded into occurrences.
func (a *App) listEvents(c *gin.Context) ([]model.Event, bool, bool) {
	req, err := a.parseListQuery(c)
	if err != nil {
		a.fail(c, err)
		return nil, false, false
	}
	events, err := a.Store.ListEvents(c.Request.Context(), req.query)
	if err != nil {
		a.fail(c, err)
		return nil, false, false
	}
	now := a.now()
	filtered := events[:0]
	for _, e := range events {
		if req.status.Match(e, now) {
			filtered = append(filtered, e)
		}
	}
	if req.expand {
		filtered = ExpandRecurrence(filtered, req.query.Start, req.query.End)
	}
	return filtered, req.expand, true
}

// GET /api/calendar/events
func (a *App) ListEventsHandler(c *gin.Context) {
	events, _, ok := a.listEvents(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /api/calendar/stats?mine=true
func (a *App) StatsHandler(c *gin.Context) {
	var q EventQuery
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		id := currentUser(c).UserID
		q.OrganizerID = &id
	}
	events, err := a.Store.ListEvents(c.Request.Context(), q)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ComputeStats(events, a.now()))
}
