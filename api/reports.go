package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/insights/analyzer"
	"github.com/seo-optimizer/insights/history"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 100
)

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultReportLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return min(n, maxReportLimit), true
}

// listReports returns recent report summaries, or the latest full report
// when ?url= is given.
func (h *Handler) listReports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report history is disabled"})
		return
	}

	if raw := c.Query("url"); raw != "" {
		target, err := analyzer.NormalizeURL(raw)
		if err != nil {
			h.renderError(c, err)
			return
		}
		result, err := h.reports.Latest(c.Request.Context(), target.Key)
		if errors.Is(err, history.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No report for this website"})
			return
		}
		if err != nil {
			h.logger.Error("failed to load report", "url", target.URL, "error", err)
			h.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	reports, err := h.reports.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list reports", "error", err)
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *Handler) reportFeed(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report history is disabled"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	rss, err := h.feed.RSS(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to render report feed", "error", err)
		h.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
