// Package client talks to the calendar service over its JSON API.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"compliance-calendar/internal/model"
)

const (
	eventsPath = "/api/calendar/events"
	icsPath    = "/api/calendar/events.ics"
	statsPath  = "/api/calendar/stats"
	slotsPath  = "/api/calendar/free-slots"
)

// APIError is a non-2xx response. Failures are not retried.
type APIError struct {
	StatusCode int               `json:"-"`
	Message    string            `json:"error"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("calendar api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("calendar api: %d: %s", e.StatusCode, e.Message)
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger
	// HTTPClient replaces the transport, mainly for tests.
	HTTPClient *http.Client
}

type Client struct {
	rest *resty.Client
	log  *slog.Logger
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc.SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}
	return &Client{rest: rc, log: logger.With("component", "calendar-client")}
}

// ListFilter mirrors the query parameters of GET /api/calendar/events.
type ListFilter struct {
	Start            time.Time
	End              time.Time
	Types            []model.EventType
	Departments      []int64
	Priorities       []model.Priority
	Status           model.StatusFilter
	Mine             bool
	ExpandRecurrence bool
}

func (f ListFilter) Values() url.Values {
	q := url.Values{}
	if !f.Start.IsZero() {
		q.Set("start", f.Start.UTC().Format(time.RFC3339))
	}
	if !f.End.IsZero() {
		q.Set("end", f.End.UTC().Format(time.RFC3339))
	}
	for _, t := range f.Types {
		q.Add("types", string(t))
	}
	for _, d := range f.Departments {
		q.Add("departments", strconv.FormatInt(d, 10))
	}
	for _, p := range f.Priorities {
		q.Add("priority", string(p))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Mine {
		q.Set("mine", "true")
	}
	if f.ExpandRecurrence {
		q.Set("expand_recurrence", "true")
	}
	return q
}

func (c *Client) CreateEvent(ctx context.Context, p model.EventPayload) (model.Event, error) {
	var out model.Event
	err := c.do(ctx, http.MethodPost, eventsPath, p, nil, &out)
	return out, err
}

func (c *Client) UpdateEvent(ctx context.Context, id int64, p model.EventPayload) (model.Event, error) {
	var out model.Event
	err := c.do(ctx, http.MethodPut, eventPath(id), p, nil, &out)
	return out, err
}

// DeleteEvent cancels the event, or removes it when hard is set.
func (c *Client) DeleteEvent(ctx context.Context, id int64, hard bool) error {
	q := url.Values{}
	if hard {
		q.Set("hard", "true")
	}
	return c.do(ctx, http.MethodDelete, eventPath(id), nil, q, nil)
}

func (c *Client) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	var out model.Event
	err := c.do(ctx, http.MethodGet, eventPath(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListEvents(ctx context.Context, f ListFilter) ([]model.Event, error) {
	var out []model.Event
	err := c.do(ctx, http.MethodGet, eventsPath, nil, f.Values(), &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context, mine bool) (model.Stats, error) {
	q := url.Values{}
	if mine {
		q.Set("mine", "true")
	}
	var out model.Stats
	err := c.do(ctx, http.MethodGet, statsPath, nil, q, &out)
	return out, err
}

// ExportICS downloads the filtered events as an iCalendar feed.
func (c *Client) ExportICS(ctx context.Context, f ListFilter) ([]byte, error) {
	apiErr := &APIError{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "text/calendar").
		SetQueryParamsFromValues(f.Values()).
		SetError(apiErr).
		Get(icsPath)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", icsPath, err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return nil, apiErr
	}
	return resp.Body(), nil
}

// SlotQuery mirrors the query parameters of GET /api/calendar/free-slots.
// Zero values fall back to the service defaults.
type SlotQuery struct {
	StartDate   string
	EndDate     string
	TZ          string
	WorkStart   string
	WorkEnd     string
	SlotMinutes int
	AvoidDays   []time.Weekday
	Mine        bool
}

func (q SlotQuery) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("start_date", q.StartDate)
	set("end_date", q.EndDate)
	set("tz", q.TZ)
	set("work_start", q.WorkStart)
	set("work_end", q.WorkEnd)
	if q.SlotMinutes > 0 {
		v.Set("slot_minutes", strconv.Itoa(q.SlotMinutes))
	}
	if len(q.AvoidDays) > 0 {
		days := make([]string, len(q.AvoidDays))
		for i, d := range q.AvoidDays {
			days[i] = strconv.Itoa(int(d))
		}
		v.Set("avoid_days", strings.Join(days, ","))
	}
	if q.Mine {
		v.Set("mine", "true")
	}
	return v
}

func (c *Client) FreeSlots(ctx context.Context, q SlotQuery) (model.FreeSlots, error) {
	var out model.FreeSlots
	err := c.do(ctx, http.MethodGet, slotsPath, nil, q.Values(), &out)
	return out, err
}

func eventPath(id int64) string {
	return eventsPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body any, query url.Values, result any) error {
	apiErr := &APIError{}
	req := c.rest.R().SetContext(ctx).SetError(apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.ErrorContext(ctx, "request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		c.log.ErrorContext(ctx, "request rejected", "method", method, "path", path, "status", apiErr.StatusCode, "error", apiErr.Message)
		return apiErr
	}
	return nil
}
