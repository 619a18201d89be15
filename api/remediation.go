package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/insights/remediation"
)

type chatRequest struct {
	Messages []remediation.Message `json:"messages"`
	Problem  *remediation.Problem  `json:"problem,omitempty"`
	Stream   bool                  `json:"stream,omitempty"`
}

func (r chatRequest) toRequest() remediation.Request {
	return remediation.Request{Messages: r.Messages, Problem: r.Problem}
}

type chatResponse struct {
	Content string `json:"content"`
	Success bool   `json:"success"`
}

func (h *Handler) aiSolution(c *gin.Context) {
	h.chat(c, h.advisor, false)
}

func (h *Handler) openaiChat(c *gin.Context) {
	h.chat(c, h.openai, true)
}

func (h *Handler) anthropicChat(c *gin.Context) {
	h.chat(c, h.anthropic, true)
}

// chat answers with the advisor's text. A failed or unconfigured provider
// still yields 200 with the apology text.
func (h *Handler) chat(c *gin.Context, advisor *remediation.Advisor, canStream bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	if advisor == nil {
		h.logger.Warn("remediation requested but no provider is configured", "path", c.FullPath())
		if canStream && req.Stream {
			streamEvents(c, func(func(string) error) remediation.Result {
				return remediation.Result{Text: remediation.Apology}
			})
			return
		}
		c.JSON(http.StatusOK, chatResponse{Content: remediation.Apology})
		return
	}

	if canStream && req.Stream {
		streamEvents(c, func(emit func(string) error) remediation.Result {
			return advisor.Stream(c.Request.Context(), req.toRequest(), emit)
		})
		return
	}

	res := advisor.Solve(c.Request.Context(), req.toRequest())
	c.JSON(http.StatusOK, chatResponse{Content: res.Text, Success: res.Success})
}

// streamEvents sends each chunk as a "message" event carrying {content}.
// A failed run then sends one "error" event whose content replaces anything
// streamed so far. A final "done" event always closes the stream.
func streamEvents(c *gin.Context, run func(emit func(string) error) remediation.Result) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	res := run(func(chunk string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SSEvent("message", gin.H{"content": chunk})
		c.Writer.Flush()
		return nil
	})

	if !res.Success {
		c.SSEvent("error", gin.H{"content": res.Text})
	}
	c.SSEvent("done", gin.H{"success": res.Success})
	c.Writer.Flush()
}
