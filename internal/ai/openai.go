package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"compliance-calendar/internal/tzutil"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"

	noEventsSummary = "No events scheduled for this window."
	nonJSONNote     = "LLM returned non-JSON response"
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	rest  *resty.Client
	model string
	key   string
	log   *slog.Logger
}

func NewOpenAI(cfg Config, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	return &OpenAI{rest: rc, model: cfg.Model, key: cfg.APIKey, log: logger.With("component", "assistant")}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	if o.key == "" {
		return "", ErrNotConfigured
	}
	var out chatResponse
	var apiErr chatError
	resp, err := o.rest.R().
		SetContext(ctx).
		SetAuthToken(o.key).
		SetBody(chatRequest{
			Model:       o.model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp.IsError() {
		o.log.ErrorContext(ctx, "chat completion rejected", "status", resp.StatusCode(), "error", apiErr.Error.Message)
		return "", fmt.Errorf("chat completion: %d %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (o *OpenAI) SuggestTitle(ctx context.Context, req SuggestTitleRequest) (string, error) {
	system := "You are a helpful assistant that writes concise, professional calendar " +
		"event titles for a compliance/GRC organization. Keep titles <= 80 chars."
	parts := []string{"Description:\n" + req.Description}
	if req.EventType != "" {
		parts = append(parts, "Type: "+req.EventType)
	}
	if len(req.Departments) > 0 {
		parts = append(parts, "Departments: "+strings.Join(req.Departments, ", "))
	}
	if req.Priority != "" {
		parts = append(parts, "Priority: "+req.Priority)
	}
	user := strings.Join(parts, "\n\n") + "\n\nReturn only the best title, no extra text."
	title, err := o.complete(ctx, system, user, 0.3, 60)
	if err != nil {
		return "", err
	}
	return CleanTitle(title), nil
}

// CleanTitle keeps the first line, strips wrapping quotes and caps the
// length at 80 runes.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if r := []rune(s); len(r) > 80 {
		s = strings.TrimSpace(string(r[:80]))
	}
	return s
}

func (o *OpenAI) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	if len(req.Events) == 0 {
		return noEventsSummary, nil
	}
	system := "You are a compliance program assistant. Summarize events clearly for executives. " +
		"Group by status, flag risks (overdue/critical), and keep it crisp."
	tz := req.TZ
	if tz == "" {
		tz = "UTC"
	}
	var b strings.Builder
	if req.WindowLabel != "" {
		b.WriteString("Time Window: " + req.WindowLabel + "\n")
	}
	b.WriteString("Timezone: " + tz + "\nEvents:\n")
	b.WriteString(EventTable(req.Events))
	b.WriteString("\n\nWrite a concise summary (bullets + 1-2 risk notes).")
	return o.complete(ctx, system, b.String(), 0.2, 250)
}

// EventTable renders one line per event for the model prompt.
func EventTable(events []EventBrief) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		title := orDefault(ev.Title, "Untitled")
		status := orDefault(ev.Status, "Scheduled")
		etype := orDefault(ev.Type, "Other")
		priority := orDefault(ev.Priority, "Medium")
		lines = append(lines, fmt.Sprintf("- [%s] (%s) %s | %s | %s", status, priority, etype, title, window(ev.StartAt, ev.EndAt)))
	}
	return strings.Join(lines, "\n")
}

func window(start, end string) string {
	sd, err := tzutil.ParseInstant(start)
	if err != nil {
		return start + " -> " + end
	}
	when := sd.UTC().Format(tzutil.DisplayLayout)
	if end == "" {
		return when
	}
	ed, err := tzutil.ParseInstant(end)
	if err != nil {
		return start + " -> " + end
	}
	return when + " -> " + ed.UTC().Format(tzutil.DisplayLayout)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (o *OpenAI) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeResult, error) {
	system := "You are a scheduling optimizer for a compliance calendar. " +
		"Respect constraints and propose concrete, minimal changes. " +
		"Output valid JSON with keys: 'moves' (list of {id, reason, new_start_at, new_end_at}) " +
		"and 'notes' (list of strings). If nothing to change, moves can be empty."
	constraints, err := json.Marshal(req.Constraints)
	if err != nil {
		return OptimizeResult{}, err
	}
	events, err := json.Marshal(req.Events)
	if err != nil {
		return OptimizeResult{}, err
	}
	user := "Constraints (JSON):\n" + string(constraints) +
		"\n\nEvents (JSON):\n" + string(events) +
		"\n\nReturn JSON only."
	raw, err := o.complete(ctx, system, user, 0.2, 800)
	if err != nil {
		return OptimizeResult{}, err
	}
	return ParseOptimizeReply(raw), nil
}

// ParseOptimizeReply is lenient: anything that is not a JSON object comes
// back as an empty proposal carrying the raw text.
func ParseOptimizeReply(raw string) OptimizeResult {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return OptimizeResult{Moves: []Move{}, Notes: []string{nonJSONNote}, Raw: raw}
	}
	res := OptimizeResult{Moves: []Move{}, Notes: []string{}, Raw: raw}
	if m, ok := top["moves"]; ok {
		var moves []Move
		if json.Unmarshal(m, &moves) == nil && moves != nil {
			res.Moves = moves
		}
	}
	if n, ok := top["notes"]; ok {
		var notes []any
		if json.Unmarshal(n, &notes) == nil {
			for _, note := range notes {
				res.Notes = append(res.Notes, fmt.Sprint(note))
			}
		}
	}
	return res
}

func (o *OpenAI) ActionItems(ctx context.Context, description string) ([]string, error) {
	system := "You extract action items from meeting/event descriptions. " +
		"Return a bullet list of actionable tasks, each starting with a verb."
	user := "Text:\n" + description + "\n\nReturn 3-8 bullets. If none, return 'No clear action items.'"
	text, err := o.complete(ctx, system, user, 0.3, 180)
	if err != nil {
		return nil, err
	}
	return SplitBullets(text), nil
}

// SplitBullets turns a bulleted reply into items.
func SplitBullets(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		item := strings.TrimSpace(strings.Trim(line, "-• "))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
