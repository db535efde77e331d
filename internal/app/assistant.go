package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-calendar/internal/ai"
)

// assistant returns the configured assistant or answers 503.
func (a *App) assistant(c *gin.Context) (ai.Assistant, bool) {
	if a.AI == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ai.ErrNotConfigured.Error()})
		return nil, false
	}
	return a.AI, true
}

func (a *App) assistantFailed(c *gin.Context, op string, err error) {
	if errors.Is(err, ai.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	a.logger(c).ErrorContext(c.Request.Context(), "assistant call failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// POST /api/calendar/ai/suggest-title
func (a *App) SuggestTitleHandler(c *gin.Context) {
	assist, ok := a.assistant(c)
	if !ok {
		return
	}
	var req ai.SuggestTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title, err := assist.SuggestTitle(c.Request.Context(), req)
	if err != nil {
		a.assistantFailed(c, "suggest-title", err)
		return
	}
	c.JSON(http.StatusOK, ai.SuggestTitleResponse{Title: title})
}

// POST /api/calendar/ai/summarize
func (a *App) SummarizeHandler(c *gin.Context) {
	assist, ok := a.assistant(c)
	if !ok {
		return
	}
	var req ai.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := assist.Summarize(c.Request.Context(), req)
	if err != nil {
		a.assistantFailed(c, "summarize", err)
		return
	}
	c.JSON(http.StatusOK, ai.SummarizeResponse{Summary: summary})
}

// POST /api/calendar/ai/optimize
func (a *App) OptimizeHandler(c *gin.Context) {
	assist, ok := a.assistant(c)
	if !ok {
		return
	}
	var req ai.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := assist.Optimize(c.Request.Context(), req)
	if err != nil {
		a.assistantFailed(c, "optimize", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/calendar/ai/action-items
func (a *App) ActionItemsHandler(c *gin.Context) {
	assist, ok := a.assistant(c)
	if !ok {
		return
	}
	var req ai.ActionItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := assist.ActionItems(c.Request.Context(), req.Description)
	if err != nil {
		a.assistantFailed(c, "action-items", err)
		return
	}
	c.JSON(http.StatusOK, ai.ActionItemsResponse{Items: items})
}
