package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/insights/analyzer"
	"github.com/seo-optimizer/insights/errs"
	"github.com/seo-optimizer/insights/middleware"
	"github.com/seo-optimizer/insights/requestid"
)

const msgInvalidBody = "Invalid request body"

type analyzeRequest struct {
	Website string `json:"website"`
}

type statusRequest struct {
	URL string `json:"url"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	c.Set(middleware.WebsiteKey, req.Website)

	result, err := h.analyses.Analyze(c.Request.Context(), req.Website)
	if err != nil {
		h.logger.Warn("analyze request failed",
			"website", req.Website,
			"error", err,
			"request_id", requestid.FromContext(c.Request.Context()),
		)
		h.renderError(c, err)
		return
	}
	c.Set(middleware.WebsiteKey, result.WebsiteURL)

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) status(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": analyzer.StatusError, "error": msgInvalidBody})
		return
	}

	report, err := h.analyses.Status(c.Request.Context(), req.URL)
	if err != nil {
		code := http.StatusInternalServerError
		msg := msgUnexpected
		var appErr *errs.AppError
		if errors.As(err, &appErr) {
			code = appErr.Status()
			msg = appErr.Message
		}
		c.JSON(code, gin.H{"status": analyzer.StatusError, "error": msg})
		return
	}

	switch report.Status {
	case analyzer.StatusNotFound, analyzer.StatusExpired:
		c.JSON(http.StatusNotFound, report)
	default:
		c.JSON(http.StatusOK, report)
	}
}
