package client

import (
	"context"
	"net/http"

	"compliance-calendar/internal/ai"
)

const aiPath = "/api/calendar/ai"

func (c *Client) SuggestTitle(ctx context.Context, req ai.SuggestTitleRequest) (string, error) {
	var out ai.SuggestTitleResponse
	err := c.do(ctx, http.MethodPost, aiPath+"/suggest-title", req, nil, &out)
	return out.Title, err
}

func (c *Client) Summarize(ctx context.Context, req ai.SummarizeRequest) (string, error) {
	var out ai.SummarizeResponse
	err := c.do(ctx, http.MethodPost, aiPath+"/summarize", req, nil, &out)
	return out.Summary, err
}

func (c *Client) Optimize(ctx context.Context, req ai.OptimizeRequest) (ai.OptimizeResult, error) {
	var out ai.OptimizeResult
	err := c.do(ctx, http.MethodPost, aiPath+"/optimize", req, nil, &out)
	return out, err
}

func (c *Client) ActionItems(ctx context.Context, description string) ([]string, error) {
	var out ai.ActionItemsResponse
	err := c.do(ctx, http.MethodPost, aiPath+"/action-items", ai.ActionItemsRequest{Description: description}, nil, &out)
	return out.Items, err
}

// TitleSuggester fills a title field from the assistant, dropping replies
// that arrive after a newer request was started.
type TitleSuggester struct {
	Client *Client
	guard  Latest
}

// Suggest requests a title and passes it to apply if no newer Suggest call
// has started in the meantime. It reports whether apply ran.
func (s *TitleSuggester) Suggest(ctx context.Context, req ai.SuggestTitleRequest, apply func(string)) (bool, error) {
	ctx, tok := s.guard.Begin(ctx)
	title, err := s.Client.SuggestTitle(ctx, req)
	if err != nil {
		if !s.guard.Current(tok) {
			return false, nil
		}
		return false, err
	}
	return s.guard.Commit(tok, func() { apply(title) }), nil
}

// Stop abandons any in-flight suggestion.
func (s *TitleSuggester) Stop() { s.guard.Stop() }
