package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-calendar/internal/ai"
	"compliance-calendar/internal/app"
	"compliance-calendar/internal/config"
	"compliance-calendar/internal/model"
)

var cliNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

type stubAssistant struct{}

func (stubAssistant) SuggestTitle(_ context.Context, req ai.SuggestTitleRequest) (string, error) {
	return "Vendor Contract Review", nil
}
func (stubAssistant) Summarize(_ context.Context, req ai.SummarizeRequest) (string, error) {
	return "events: " + strings.Repeat("*", len(req.Events)), nil
}
func (stubAssistant) Optimize(context.Context, ai.OptimizeRequest) (ai.OptimizeResult, error) {
	return ai.OptimizeResult{Notes: []string{"all good"}}, nil
}
func (stubAssistant) ActionItems(context.Context, string) ([]string, error) {
	return []string{"Book room"}, nil
}

type cliHarness struct {
	t       *testing.T
	store   *app.MemoryStore
	url     string
	profile string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	for _, k := range []string{"CALCTL_BASE_URL", "CALCTL_TOKEN", "CALCTL_TZ", "CALCTL_TIMEOUT", "CALCTL_CONFIG"} {
		t.Setenv(k, "")
	}
	gin.SetMode(gin.TestMode)
	store := app.NewMemoryStore()
	a := &app.App{
		Store:  store,
		AI:     stubAssistant{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return cliNow },
	}
	r := gin.New()
	a.Routes(r, app.AuthMiddleware("", []string{"svc-token"}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &cliHarness{t: t, store: store, url: srv.URL, profile: filepath.Join(t.TempDir(), "calctl.yaml")}
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmd(func() time.Time { return cliNow })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--base-url", h.url, "--token", "svc-token", "--config", h.profile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("calctl %v: %v\n%s", args, err, out)
	}
	return out
}

func (h *cliHarness) events() []model.Event {
	h.t.Helper()
	events, err := h.store.ListEvents(context.Background(), app.EventQuery{})
	if err != nil {
		h.t.Fatal(err)
	}
	return events
}

func TestEventNewReconcilesAndSubmits(t *testing.T) {
	h := newCLIHarness(t)
	out := h.mustRun("event", "new", "--tz", "Europe/Berlin",
		"--title", "SOX walkthrough", "--type", "Audit",
		"--start-date", "2025-06-10", "--start-time", "14:00",
		"--required", "ciso@example.com", "--optional", "intern@example.com",
		"--reminder", "15", "--reminder", "1440")

	if !strings.Contains(out, "end set to 2025-06-10 14:30") {
		t.Fatalf("missing correction note:\n%s", out)
	}
	if !strings.Contains(out, "created event #1") || !strings.Contains(out, "14:00-14:30") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	events := h.events()
	if len(events) != 1 {
		t.Fatalf("stored %d events", len(events))
	}
	e := events[0]
	if !e.StartAt.Equal(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)) || e.EndAt.Sub(e.StartAt) != 30*time.Minute {
		t.Fatalf("instants %v - %v", e.StartAt, e.EndAt)
	}
	if e.TZ != "Europe/Berlin" || e.Type != model.TypeAudit || len(e.Attendees) != 2 || len(e.Reminders) != 2 {
		t.Fatalf("event %+v", e)
	}
	if !e.Attendees[0].Required || e.Attendees[1].Required {
		t.Fatalf("attendee order %+v", e.Attendees)
	}
}

func TestEventNewAllDay(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("event", "new", "--tz", "America/New_York", "--title", "Filing deadline", "--type", "Deadline",
		"--all-day", "--start-date", "2025-06-12")
	e := h.events()[0]
	if !e.AllDay || !e.StartAt.Equal(time.Date(2025, 6, 12, 4, 0, 0, 0, time.UTC)) || e.EndAt.Sub(e.StartAt) != 24*time.Hour {
		t.Fatalf("all-day event %v - %v", e.StartAt, e.EndAt)
	}
}

func TestAllDayDatesStayInEventZone(t *testing.T) {
	h := newCLIHarness(t)
	out := h.mustRun("event", "new", "--tz", "Asia/Kolkata", "--title", "Holi", "--type", "Other",
		"--all-day", "--start-date", "2025-07-10")
	if !strings.Contains(out, "on 2025-07-10 all day") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	h.mustRun("event", "new", "--tz", "Asia/Kolkata", "--title", "Offsite", "--type", "Meeting",
		"--all-day", "--start-date", "2025-07-14", "--end-date", "2025-07-15")

	out = h.mustRun("--tz", "America/New_York", "event", "list")
	if !strings.Contains(out, "2025-07-10") || strings.Contains(out, "2025-07-09") {
		t.Fatalf("all-day date shifted into the viewer zone:\n%s", out)
	}
	if !strings.Contains(out, "all day to 2025-07-15") {
		t.Fatalf("multi-day span missing:\n%s", out)
	}
	out = h.mustRun("--tz", "America/New_York", "event", "show", "1")
	if !strings.Contains(out, "2025-07-10 all day") {
		t.Fatalf("show output:\n%s", out)
	}
}

func TestEventNewValidation(t *testing.T) {
	h := newCLIHarness(t)
	out, err := h.run("event", "new", "--tz", "UTC", "--title", "x", "--start-date", "2025-05-01",
		"--required", "not-an-email", "--reminder", "45")
	if !errors.Is(err, errNotSaved) {
		t.Fatalf("err = %v", err)
	}
	for _, field := range []string{"title:", "start_date:", "attendees:", "reminders:"} {
		if !strings.Contains(out, field) {
			t.Errorf("output lacks %s\n%s", field, out)
		}
	}
	if len(h.events()) != 0 {
		t.Fatal("invalid event was submitted")
	}
}

func TestEventNewServiceRejection(t *testing.T) {
	h := newCLIHarness(t)
	out, err := h.run("event", "new", "--tz", "UTC", "--title", "Bad rule", "--start-date", "2025-06-10",
		"--rrule", "FREQ=SOMETIMES")
	if !errors.Is(err, errNotSaved) || !strings.Contains(out, "rrule:") {
		t.Fatalf("err = %v\n%s", err, out)
	}
}

func TestEventNewSuggestsTitle(t *testing.T) {
	h := newCLIHarness(t)
	out := h.mustRun("event", "new", "--tz", "UTC", "--start-date", "2025-06-10",
		"--description", "yearly review of vendor contracts", "--suggest-title")
	if !strings.Contains(out, `title suggested: "Vendor Contract Review"`) {
		t.Fatalf("output:\n%s", out)
	}
	if h.events()[0].Title != "Vendor Contract Review" {
		t.Fatalf("stored title %q", h.events()[0].Title)
	}
}

func TestEventNewDryRun(t *testing.T) {
	h := newCLIHarness(t)
	out := h.mustRun("event", "new", "--tz", "Asia/Tokyo", "--title", "Dry run", "--start-date", "2025-06-10", "--dry-run")
	var p model.EventPayload
	if err := json.Unmarshal([]byte(out[strings.Index(out, "{"):]), &p); err != nil {
		t.Fatalf("%v\n%s", err, out)
	}
	if p.TZ != "Asia/Tokyo" || !p.StartAt.Equal(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("payload %+v", p)
	}
	if len(h.events()) != 0 {
		t.Fatal("dry run submitted")
	}
}

func TestEventEditKeepsUntouchedFields(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("event", "new", "--tz", "Europe/Berlin", "--title", "SOX walkthrough",
		"--start-date", "2025-06-10", "--start-time", "14:00", "--end-time", "15:00",
		"--required", "ciso@example.com", "--reminder", "60")

	// without --tz the edit is read in the event's own zone
	out := h.mustRun("event", "edit", "1", "--title", "SOX walkthrough (moved)", "--start-time", "16:00")
	if !strings.Contains(out, "updated event #1") {
		t.Fatalf("output:\n%s", out)
	}
	e := h.events()[0]
	if e.Title != "SOX walkthrough (moved)" || e.TZ != "Europe/Berlin" {
		t.Fatalf("event %+v", e)
	}
	if !e.StartAt.Equal(time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)) || !e.EndAt.Equal(time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("instants %v - %v", e.StartAt, e.EndAt)
	}
	if len(e.Attendees) != 1 || len(e.Reminders) != 1 || e.Reminders[0].MinutesBefore != 60 {
		t.Fatalf("lists changed: %+v %+v", e.Attendees, e.Reminders)
	}
}

func TestEventListShowDelete(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("event", "new", "--tz", "UTC", "--title", "Risk workshop", "--type", "Risk Assessment", "--start-date", "2025-06-05")
	h.mustRun("event", "new", "--tz", "UTC", "--title", "Policy training", "--type", "Training Session", "--start-date", "2025-06-06")

	out := h.mustRun("--tz", "Asia/Tokyo", "event", "list")
	if !strings.Contains(out, "Risk workshop") || !strings.Contains(out, "Policy training") || !strings.Contains(out, "18:00-19:00") {
		t.Fatalf("list:\n%s", out)
	}
	out = h.mustRun("event", "list", "--type", "Training Session", "--json")
	var listed []model.Event
	if err := json.Unmarshal([]byte(out), &listed); err != nil || len(listed) != 1 || listed[0].Title != "Policy training" {
		t.Fatalf("filtered list %v %+v", err, listed)
	}
	out = h.mustRun("--tz", "UTC", "event", "list", "--start", "2025-06-06", "--end", "2025-06-06")
	if strings.Contains(out, "Risk workshop") || !strings.Contains(out, "Policy training") {
		t.Fatalf("window list:\n%s", out)
	}

	out = h.mustRun("--tz", "UTC", "event", "show", "1")
	if !strings.Contains(out, "#1 Risk workshop") || !strings.Contains(out, "2025-06-05 09:00-10:00") {
		t.Fatalf("show:\n%s", out)
	}

	h.mustRun("event", "delete", "1")
	if e := h.events()[0]; e.Status != model.StatusCancelled {
		t.Fatalf("soft delete left %s", e.Status)
	}
	h.mustRun("event", "delete", "#2", "--hard")
	if len(h.events()) != 1 {
		t.Fatal("hard delete kept the event")
	}
	if _, err := h.run("event", "show", "2"); err == nil {
		t.Fatal("deleted event still shown")
	}
	if _, err := h.run("event", "delete", "abc"); err == nil {
		t.Fatal("bad id accepted")
	}
}

func TestEventExport(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("event", "new", "--tz", "UTC", "--title", "Risk workshop", "--start-date", "2025-06-05")
	path := filepath.Join(t.TempDir(), "out.ics")
	h.mustRun("event", "export", "-o", path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "BEGIN:VCALENDAR") || !strings.Contains(string(data), "SUMMARY:Risk workshop") {
		t.Fatalf("feed:\n%s", data)
	}
}

func TestStatsAndSlots(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("event", "new", "--tz", "UTC", "--title", "Risk workshop", "--type", "Audit",
		"--start-date", "2025-06-10", "--start-time", "10:00", "--end-time", "11:00")

	out := h.mustRun("stats")
	if !strings.Contains(out, "Total: 1") || !strings.Contains(out, "Upcoming: 1") || !strings.Contains(out, "Audit=1") {
		t.Fatalf("stats:\n%s", out)
	}

	out = h.mustRun("--tz", "UTC", "slots", "--start-date", "2025-06-10", "--work-start", "09:00", "--work-end", "12:00", "--minutes", "60")
	if !strings.Contains(out, "09:00") || !strings.Contains(out, "11:00") {
		t.Fatalf("slots:\n%s", out)
	}
	if !strings.Contains(out, "2 slot(s)") {
		t.Fatalf("slot count:\n%s", out)
	}
	if _, err := h.run("slots", "--avoid-day", "7"); err == nil {
		t.Fatal("bad weekday accepted")
	}
}

func TestAICommands(t *testing.T) {
	h := newCLIHarness(t)
	if out := h.mustRun("ai", "suggest-title", "yearly", "vendor", "review"); strings.TrimSpace(out) != "Vendor Contract Review" {
		t.Fatalf("suggest-title: %q", out)
	}
	h.mustRun("event", "new", "--tz", "UTC", "--title", "Risk workshop", "--start-date", "2025-06-05")
	if out := h.mustRun("ai", "summarize"); strings.TrimSpace(out) != "events: *" {
		t.Fatalf("summarize: %q", out)
	}
	if out := h.mustRun("ai", "optimize", "--buffer", "15"); !strings.Contains(out, "all good") {
		t.Fatalf("optimize: %q", out)
	}
	if out := h.mustRun("ai", "action-items", "prepare"); strings.TrimSpace(out) != "- Book room" {
		t.Fatalf("action-items: %q", out)
	}
}

func TestTZCommands(t *testing.T) {
	h := newCLIHarness(t)
	if out := h.mustRun("--tz", "Europe/Berlin", "tz", "convert", "--date", "2025-03-30", "--time", "09:00"); strings.TrimSpace(out) != "2025-03-30T07:00:00.000Z" {
		t.Fatalf("convert: %q", out)
	}
	out := h.mustRun("--tz", "Asia/Tokyo", "tz", "show", "2025-06-10T12:00:00Z")
	if !strings.Contains(out, "Date: 2025-06-10") || !strings.Contains(out, "Time: 21:00") {
		t.Fatalf("show:\n%s", out)
	}
	if out := h.mustRun("--tz", "UTC", "tz", "show", "garbage"); !strings.Contains(out, "Invalid Date") {
		t.Fatalf("show garbage:\n%s", out)
	}
	if _, err := h.run("--tz", "Mars/Olympus", "tz", "host"); err == nil {
		t.Fatal("unknown zone accepted")
	}
}

func TestConfigSave(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("--tz", "Asia/Tokyo", "--timeout", "5s", "config", "save")
	p, err := config.LoadProfile(h.profile)
	if err != nil {
		t.Fatal(err)
	}
	if p.BaseURL != h.url || p.Token != "svc-token" || p.TimeZone != "Asia/Tokyo" || p.Timeout != 5*time.Second {
		t.Fatalf("profile %+v", p)
	}
	out := h.mustRun("config", "show")
	if !strings.Contains(out, "Token: (set)") || !strings.Contains(out, "Time zone: Asia/Tokyo") {
		t.Fatalf("show:\n%s", out)
	}
}
