package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeCompletions(t *testing.T, reply string, seen *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
}

func TestSuggestTitle(t *testing.T) {
	var seen chatRequest
	srv := fakeCompletions(t, "\"ISO 27001 Surveillance Audit\"\nextra line", &seen)
	defer srv.Close()

	o := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	title, err := o.SuggestTitle(context.Background(), SuggestTitleRequest{
		Description: "annual surveillance audit",
		EventType:   "Audit",
		Departments: []string{"IT", "Security"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if title != "ISO 27001 Surveillance Audit" {
		t.Fatalf("title = %q", title)
	}
	if seen.Model != DefaultModel || len(seen.Messages) != 2 {
		t.Fatalf("unexpected request %+v", seen)
	}
	if !strings.Contains(seen.Messages[1].Content, "Departments: IT, Security") {
		t.Fatalf("prompt missing departments: %q", seen.Messages[1].Content)
	}
}

func TestSummarizeWithoutEventsSkipsModel(t *testing.T) {
	o := NewOpenAI(Config{}, nil)
	got, err := o.Summarize(context.Background(), SummarizeRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got != noEventsSummary {
		t.Fatalf("got %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	o := NewOpenAI(Config{}, nil)
	if _, err := o.ActionItems(context.Background(), "call vendor"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestActionItems(t *testing.T) {
	srv := fakeCompletions(t, "- Email the auditor\n\n• Upload evidence\n-  Book room ", nil)
	defer srv.Close()
	o := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	items, err := o.ActionItems(context.Background(), "prep")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Email the auditor", "Upload evidence", "Book room"}
	if strings.Join(items, "|") != strings.Join(want, "|") {
		t.Fatalf("items = %q", items)
	}
}

func TestParseOptimizeReply(t *testing.T) {
	res := ParseOptimizeReply(`{"moves":[{"id":"4","reason":"outside hours","new_start_at":"2025-01-02T09:00:00Z"}],"notes":["ok",3]}`)
	if len(res.Moves) != 1 || res.Moves[0].ID != "4" {
		t.Fatalf("moves = %+v", res.Moves)
	}
	if len(res.Notes) != 2 || res.Notes[1] != "3" {
		t.Fatalf("notes = %+v", res.Notes)
	}

	res = ParseOptimizeReply("I would move the audit to Tuesday.")
	if len(res.Moves) != 0 || len(res.Notes) != 1 || res.Notes[0] != nonJSONNote {
		t.Fatalf("non-JSON reply = %+v", res)
	}
	if res.Raw == "" {
		t.Fatal("raw text should be kept")
	}

	res = ParseOptimizeReply("```json\n{\"moves\":\"nope\"}\n```")
	if len(res.Moves) != 0 || len(res.Notes) != 0 {
		t.Fatalf("fenced reply = %+v", res)
	}
}

func TestEventTable(t *testing.T) {
	got := EventTable([]EventBrief{
		{Title: "Audit", StartAt: "2025-01-02T09:00:00Z", EndAt: "2025-01-02T10:00:00Z", Priority: "High"},
		{StartAt: "garbage"},
	})
	lines := strings.Split(got, "\n")
	if lines[0] != "- [Scheduled] (High) Other | Audit | 2025-01-02 09:00 -> 2025-01-02 10:00" {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if lines[1] != "- [Scheduled] (Medium) Other | Untitled | garbage -> " {
		t.Fatalf("line 1 = %q", lines[1])
	}
}
