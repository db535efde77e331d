// Package ai provides the calendar assistant features: title suggestions,
// window summaries, schedule optimisation and action item extraction.
package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no model credentials are available.
var ErrNotConfigured = errors.New("OPENAI_API_KEY is not set")

// Assistant is implemented by OpenAI and by test fakes.
type Assistant interface {
	SuggestTitle(ctx context.Context, req SuggestTitleRequest) (string, error)
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)
	Optimize(ctx context.Context, req OptimizeRequest) (OptimizeResult, error)
	ActionItems(ctx context.Context, description string) ([]string, error)
}

// EventBrief is the slice of an event the assistant sees.
type EventBrief struct {
	ID            string  `json:"id,omitempty"`
	Title         string  `json:"title"`
	Type          string  `json:"type,omitempty"`
	Description   string  `json:"description,omitempty"`
	Location      string  `json:"location,omitempty"`
	DepartmentIDs []int64 `json:"department_ids,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	Status        string  `json:"status,omitempty"`
	AllDay        bool    `json:"all_day,omitempty"`
	StartAt       string  `json:"start_at"`
	EndAt         string  `json:"end_at,omitempty"`
	Reminders     []int   `json:"reminders,omitempty"`
}

type SuggestTitleRequest struct {
	Description string   `json:"description" binding:"required,min=2"`
	EventType   string   `json:"event_type,omitempty"`
	Departments []string `json:"departments,omitempty"`
	Priority    string   `json:"priority,omitempty"`
}

type SuggestTitleResponse struct {
	Title string `json:"title"`
}

type SummarizeRequest struct {
	TZ          string       `json:"tz,omitempty"`
	WindowLabel string       `json:"window_label,omitempty"`
	Events      []EventBrief `json:"events"`
}

type SummarizeResponse struct {
	Summary string `json:"summary"`
}

type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type OptimizeConstraints struct {
	WorkingHours     *WorkingHours `json:"working_hours,omitempty"`
	AvoidDays        []int         `json:"avoid_days,omitempty"`
	MaxDailyMeetings *int          `json:"max_daily_meetings,omitempty"`
	BufferMinutes    *int          `json:"buffer_minutes,omitempty"`
}

type OptimizeRequest struct {
	Constraints OptimizeConstraints `json:"constraints"`
	Events      []EventBrief        `json:"events"`
}

type Move struct {
	ID         string `json:"id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	NewStartAt string `json:"new_start_at,omitempty"`
	NewEndAt   string `json:"new_end_at,omitempty"`
}

type OptimizeResult struct {
	Moves []Move   `json:"moves"`
	Notes []string `json:"notes"`
	Raw   string   `json:"raw,omitempty"`
}

type ActionItemsRequest struct {
	Description string `json:"description" binding:"required,min=2"`
}

type ActionItemsResponse struct {
	Items []string `json:"items"`
}
