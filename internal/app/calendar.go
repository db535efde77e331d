package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"compliance-calendar/internal/model"
	"compliance-calendar/internal/tzutil"
)

// GoogleCalendar holds the OAuth2 client used to read Google calendars.
type GoogleCalendar struct {
	Config *oauth2.Config
	// Endpoint overrides the Calendar API base URL.
	Endpoint string
}

// NewGoogleCalendar returns nil unless all three settings are present.
func NewGoogleCalendar(clientID, clientSecret, redirectURL string) *GoogleCalendar {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &GoogleCalendar{Config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}}
}

func (g *GoogleCalendar) service(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(g.Config.Client(ctx, token))}
	if g.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.Endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

func (a *App) google(c *gin.Context) (*GoogleCalendar, bool) {
	if a.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return nil, false
	}
	return a.Google, true
}

// googleService builds a Calendar client from the X-Google-Token header,
// which carries the JSON token returned by the OAuth callback.
func (a *App) googleService(c *gin.Context) (*calendar.Service, bool) {
	g, ok := a.google(c)
	if !ok {
		return nil, false
	}
	tokenStr := c.GetHeader("X-Google-Token")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google token required in X-Google-Token header"})
		return nil, false
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenStr), &token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token format"})
		return nil, false
	}
	srv, err := g.service(c.Request.Context(), &token)
	if err != nil {
		a.logger(c).ErrorContext(c.Request.Context(), "calendar service", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create calendar service"})
		return nil, false
	}
	return srv, true
}

// GET /api/calendar/google/auth
func (a *App) GoogleAuthHandler(c *gin.Context) {
	g, ok := a.google(c)
	if !ok {
		return
	}
	state := fmt.Sprintf("user_%d_%d", currentUser(c).UserID, a.now().Unix())
	c.JSON(http.StatusOK, gin.H{
		"auth_url": g.Config.AuthCodeURL(state, oauth2.AccessTypeOffline),
		"state":    state,
	})
}

// GET /oauth2callback
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	g, ok := a.google(c)
	if !ok {
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}
	token, err := g.Config.Exchange(c.Request.Context(), code)
	if err != nil {
		a.logger(c).WarnContext(c.Request.Context(), "oauth exchange failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		a.fail(c, err)
		return
	}
	// the caller keeps the token and replays it in X-Google-Token
	c.JSON(http.StatusOK, gin.H{
		"message": "Authorization successful",
		"state":   c.Query("state"),
		"token":   string(tokenJSON),
	})
}

type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
	AccessRole  string `json:"access_role"`
	TimeZone    string `json:"time_zone,omitempty"`
}

// GET /api/calendar/google/calendars
func (a *App) GetGoogleCalendarList(c *gin.Context) {
	srv, ok := a.googleService(c)
	if !ok {
		return
	}
	list, err := srv.CalendarList.List().Context(c.Request.Context()).Do()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to retrieve calendars: %v", err)})
		return
	}
	calendars := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, CalendarInfo{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Primary:     item.Primary,
			AccessRole:  item.AccessRole,
			TimeZone:    item.TimeZone,
		})
	}
	c.JSON(http.StatusOK, gin.H{"calendars": calendars, "count": len(calendars)})
}

func fetchGoogleEvents(ctx context.Context, srv *calendar.Service, calendarID, timeMin, timeMax string) (*calendar.Events, error) {
	call := srv.Events.List(calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)
	if timeMin != "" {
		call = call.TimeMin(timeMin)
	}
	if timeMax != "" {
		call = call.TimeMax(timeMax)
	}
	return call.Do()
}

// GET /api/calendar/google/events
// Google events converted to calendar payloads without saving them.
func (a *App) GetGoogleCalendarEvents(c *gin.Context) {
	srv, ok := a.googleService(c)
	if !ok {
		return
	}
	events, err := fetchGoogleEvents(c.Request.Context(), srv,
		c.DefaultQuery("calendar_id", "primary"), c.Query("time_min"), c.Query("time_max"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to retrieve events: %v", err)})
		return
	}
	payloads := []model.EventPayload{}
	for _, item := range events.Items {
		if p, ok := ConvertGoogleEvent(item, events.TimeZone, model.TypeMeeting); ok {
			payloads = append(payloads, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"events": payloads, "count": len(payloads)})
}

type ImportRequest struct {
	CalendarID    string          `json:"calendar_id"`
	TimeMin       string          `json:"time_min"`
	TimeMax       string          `json:"time_max"`
	Type          model.EventType `json:"type"`
	DepartmentIDs []int64         `json:"department_ids"`
}

type ImportResult struct {
	Imported []model.Event `json:"imported"`
	Skipped  int           `json:"skipped"`
}

// POST /api/calendar/google/import
// Copies Google events into the calendar, organized by the caller.
func (a *App) ImportGoogleEventsHandler(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CalendarID == "" {
		req.CalendarID = "primary"
	}
	if req.Type == "" {
		req.Type = model.TypeMeeting
	}
	if !req.Type.Valid() {
		a.fail(c, &model.ValidationError{FieldErrors: map[string]string{"type": "type is invalid"}})
		return
	}
	srv, ok := a.googleService(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	events, err := fetchGoogleEvents(ctx, srv, req.CalendarID, req.TimeMin, req.TimeMax)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to retrieve events: %v", err)})
		return
	}

	user := currentUser(c)
	res := ImportResult{Imported: []model.Event{}}
	for _, item := range events.Items {
		p, ok := ConvertGoogleEvent(item, tzutil.Resolve(events.TimeZone, a.timeZone()), req.Type)
		if !ok {
			res.Skipped++
			continue
		}
		p.DepartmentIDs = req.DepartmentIDs
		p.Normalize(a.timeZone())
		if err := validatePayload(p); err != nil {
			a.logger(c).DebugContext(ctx, "skipping google event", "google_id", item.Id, "error", err)
			res.Skipped++
			continue
		}
		e := model.NewEvent(p, user.UserID)
		if err := a.Store.CreateEvent(ctx, &e); err != nil {
			a.fail(c, err)
			return
		}
		res.Imported = append(res.Imported, e)
	}
	a.logger(c).InfoContext(ctx, "google import finished", "imported", len(res.Imported), "skipped", res.Skipped)
	c.JSON(http.StatusOK, res)
}

// ConvertGoogleEvent maps a Google event onto a payload in the event's own
// zone, falling back to the calendar zone. Cancelled or undated events are
// rejected.
func ConvertGoogleEvent(item *calendar.Event, calendarTZ string, typ model.EventType) (model.EventPayload, bool) {
	if item == nil || item.Status == "cancelled" || item.Start == nil || item.End == nil {
		return model.EventPayload{}, false
	}
	tz := tzutil.Resolve(item.Start.TimeZone, calendarTZ, "UTC")
	p := model.EventPayload{
		Title:              googleTitle(item.Summary),
		Type:               typ,
		Description:        item.Description,
		Location:           item.Location,
		VirtualMeetingLink: item.HangoutLink,
		TZ:                 tz,
		Status:             model.StatusScheduled,
	}

	if item.Start.Date != "" {
		// all-day: Google's end date is already exclusive
		start, err := tzutil.ZonedDateTimeToUTC(item.Start.Date, "", tz)
		if err != nil {
			return model.EventPayload{}, false
		}
		end, err := tzutil.ZonedDateTimeToUTC(item.End.Date, "", tz)
		if err != nil {
			return model.EventPayload{}, false
		}
		p.AllDay, p.StartAt, p.EndAt = true, start, end
	} else {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return model.EventPayload{}, false
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return model.EventPayload{}, false
		}
		p.StartAt, p.EndAt = start.UTC(), end.UTC()
	}

	for _, att := range item.Attendees {
		if att == nil || att.Email == "" || att.Self {
			continue
		}
		p.Attendees = append(p.Attendees, model.Attendee{Email: att.Email, Required: !att.Optional})
	}
	if item.Reminders != nil {
		for _, r := range item.Reminders.Overrides {
			p.Reminders = append(p.Reminders, model.Reminder{MinutesBefore: int(r.Minutes), Method: googleMethod(r.Method)})
		}
	}
	return p, true
}

func googleTitle(summary string) string {
	summary = strings.TrimSpace(summary)
	if len([]rune(summary)) < model.TitleMinLen {
		return "Untitled event"
	}
	if r := []rune(summary); len(r) > model.TitleMaxLen {
		summary = string(r[:model.TitleMaxLen])
	}
	return summary
}

func googleMethod(m string) model.ReminderMethod {
	switch m {
	case "popup":
		return model.MethodPush
	case "sms":
		return model.MethodSMS
	default:
		return model.MethodEmail
	}
}
