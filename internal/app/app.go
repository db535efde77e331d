// Package app serves the calendar REST API.
package app

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-calendar/internal/ai"
	"compliance-calendar/internal/logging"
	"compliance-calendar/internal/model"
)

type App struct {
	Store  EventStore
	AI     ai.Assistant // nil disables the /ai routes
	Google *GoogleCalendar
	Logger *slog.Logger
	Now    func() time.Time

	// TimeZone applies to events and slot searches that name no zone.
	// Empty means UTC.
	TimeZone string
}

func (a *App) timeZone() string {
	if a.TimeZone != "" {
		return a.TimeZone
	}
	return "UTC"
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *App) logger(c *gin.Context) *slog.Logger {
	return logging.FromContext(c.Request.Context(), a.Logger)
}

// Routes registers every handler on r. auth guards everything except the
// health check and the OAuth callback.
func (a *App) Routes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := r.Group("/api", auth)
	cal := api.Group("/calendar")
	{
		cal.POST("/events", a.CreateEventHandler)
		cal.GET("/events", a.ListEventsHandler)
		cal.GET("/events.ics", a.ExportICSHandler)
		cal.GET("/events/:id", a.GetEventHandler)
		cal.PUT("/events/:id", a.UpdateEventHandler)
		cal.DELETE("/events/:id", a.DeleteEventHandler)
		cal.GET("/stats", a.StatsHandler)
		cal.GET("/free-slots", a.FreeSlotsHandler)

		assist := cal.Group("/ai")
		assist.POST("/suggest-title", a.SuggestTitleHandler)
		assist.POST("/summarize", a.SummarizeHandler)
		assist.POST("/optimize", a.OptimizeHandler)
		assist.POST("/action-items", a.ActionItemsHandler)

		google := cal.Group("/google")
		google.GET("/auth", a.GoogleAuthHandler)
		google.GET("/calendars", a.GetGoogleCalendarList)
		google.GET("/events", a.GetGoogleCalendarEvents)
		google.POST("/import", a.ImportGoogleEventsHandler)
	}
}

// fail maps store and validation errors onto status codes.
func (a *App) fail(c *gin.Context, err error) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": vErr.FieldErrors})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, model.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not permitted"})
	default:
		a.logger(c).ErrorContext(c.Request.Context(), "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
