package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/insights/analyzer"
	"github.com/seo-optimizer/insights/errs"
	"github.com/seo-optimizer/insights/history"
	"github.com/seo-optimizer/insights/remediation"
	"github.com/seo-optimizer/insights/stats"
)

const msgUnexpected = "An unexpected error occurred"

// Analyses runs and tracks website analyses.
type Analyses interface {
	Analyze(ctx context.Context, rawURL string) (*analyzer.AnalysisResult, error)
	Status(ctx context.Context, rawURL string) (analyzer.StatusReport, error)
	CacheStats(ctx context.Context) analyzer.CacheStats
}

// Reports reads stored reports.
type Reports interface {
	Recent(ctx context.Context, limit int) ([]history.Report, error)
	Latest(ctx context.Context, websiteURL string) (*analyzer.AnalysisResult, error)
}

// FeedRenderer renders recent reports as RSS.
type FeedRenderer interface {
	RSS(ctx context.Context, limit int) (string, error)
}

// VisitorStats reports request statistics.
type VisitorStats interface {
	Snapshot() map[string]any
}

// MonthlyStats reports the current month's counters.
type MonthlyStats interface {
	GetCurrentStats() stats.MonthlyStats
}

// Handler serves the HTTP API.
type Handler struct {
	analyses Analyses

	advisor   *remediation.Advisor
	openai    *remediation.Advisor
	anthropic *remediation.Advisor

	reports Reports
	feed    FeedRenderer

	visitors VisitorStats
	monthly  MonthlyStats

	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithAdvisors sets the remediation advisors. Any of them may be nil; the
// default advisor serves /ai-solution.
func WithAdvisors(def, openai, anthropic *remediation.Advisor) Option {
	return func(h *Handler) {
		h.advisor = def
		h.openai = openai
		h.anthropic = anthropic
	}
}

// WithReports enables the report history endpoints.
func WithReports(reports Reports, feed FeedRenderer) Option {
	return func(h *Handler) {
		h.reports = reports
		h.feed = feed
	}
}

// WithStatistics enables the statistics endpoint.
func WithStatistics(visitors VisitorStats, monthly MonthlyStats) Option {
	return func(h *Handler) {
		h.visitors = visitors
		h.monthly = monthly
	}
}

// New creates a Handler backed by analyses.
func New(analyses Analyses, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{analyses: analyses, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes attaches the handlers to r, which is normally the /api group.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.health)
	r.POST("/analyze", h.analyze)
	r.POST("/analyze/status", h.status)
	r.POST("/ai-solution", h.aiSolution)
	r.POST("/openai/chat", h.openaiChat)
	r.POST("/anthropic/chat", h.anthropicChat)
	r.GET("/reports", h.listReports)
	r.GET("/reports/feed", h.reportFeed)
	r.GET("/statistics", h.statistics)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) statistics(c *gin.Context) {
	out := gin.H{"cache": h.analyses.CacheStats(c.Request.Context())}
	if h.visitors != nil {
		for k, v := range h.visitors.Snapshot() {
			out[k] = v
		}
	}
	if h.monthly != nil {
		out["monthly"] = h.monthly.GetCurrentStats()
	}
	c.JSON(http.StatusOK, out)
}

// renderError writes {error: message} with the status implied by err.
func (h *Handler) renderError(c *gin.Context, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status(), gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgUnexpected})
}
