// Package remediation asks an LLM how to fix an audit issue.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Apology is the text returned in place of an answer when the provider fails.
const Apology = "I apologize, but I'm having trouble generating a solution right now. Please try again in a moment."

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty response from provider")

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Problem is the issue being discussed.
type Problem struct {
	Title         string   `json:"title"`
	SimpleSummary string   `json:"simple_summary,omitempty"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	Impact        string   `json:"impact,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	CurrentValue  string   `json:"current_value,omitempty"`
}

// Request is a remediation question with its conversation history.
type Request struct {
	Messages []Message `json:"messages"`
	Problem  *Problem  `json:"problem,omitempty"`
}

// Result is the outcome of a remediation lookup. Text always holds
// something to show the user.
type Result struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// Provider completes a conversation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Streamer is a Provider that can deliver the answer incrementally.
type Streamer interface {
	Provider
	Stream(ctx context.Context, messages []Message, onChunk func(string) error) error
}

// OutcomeRecorder counts remediation outcomes.
type OutcomeRecorder interface {
	RecordRemediation(success bool)
}

const persona = "You are a senior SEO and web performance consultant. " +
	"Explain problems in plain language, then give concrete, prioritized steps " +
	"a developer can apply to fix them. Prefer short code or configuration " +
	"examples where they help."

// BuildMessages prepends the consultant preamble, including the problem
// details when present, to the conversation history.
func BuildMessages(req Request) []Message {
	var b strings.Builder
	b.WriteString(persona)

	if p := req.Problem; p != nil {
		b.WriteString("\n\nThe user is asking about this issue from their website audit:")
		fmt.Fprintf(&b, "\nTitle: %s", p.Title)
		if p.SimpleSummary != "" {
			fmt.Fprintf(&b, "\nSummary: %s", p.SimpleSummary)
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "\nDetails: %s", p.Description)
		}
		if p.Category != "" {
			fmt.Fprintf(&b, "\nCategory: %s", p.Category)
		}
		if p.Impact != "" {
			fmt.Fprintf(&b, "\nImpact: %s", p.Impact)
		}
		if p.Score != nil {
			fmt.Fprintf(&b, "\nScore: %.2f", *p.Score)
		}
		if p.CurrentValue != "" && p.CurrentValue != "N/A" {
			fmt.Fprintf(&b, "\nCurrent value: %s", p.CurrentValue)
		}
	}

	out := make([]Message, 0, len(req.Messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: b.String()})
	for _, m := range req.Messages {
		if m.Role == RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Advisor answers remediation requests, converting provider failures into
// the apology text.
type Advisor struct {
	provider Provider
	stats    OutcomeRecorder
	logger   *slog.Logger
}

// NewAdvisor returns an Advisor using provider. stats may be nil.
func NewAdvisor(provider Provider, stats OutcomeRecorder, logger *slog.Logger) *Advisor {
	return &Advisor{provider: provider, stats: stats, logger: logger}
}

// Provider returns the name of the underlying provider.
func (a *Advisor) Provider() string {
	return a.provider.Name()
}

// Solve returns the provider's answer, or the apology on failure.
func (a *Advisor) Solve(ctx context.Context, req Request) Result {
	text, err := a.provider.Complete(ctx, BuildMessages(req))
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return a.fail(err)
	}
	a.record(true)
	return Result{Success: true, Text: text}
}

// Stream delivers the answer through onChunk as it arrives. If the provider
// cannot stream it is called once with the complete answer. On failure the
// apology is not sent as a chunk; it is returned in an unsuccessful Result
// and any chunks already delivered must be discarded by the caller. On
// success the Result holds the full text sent.
func (a *Advisor) Stream(ctx context.Context, req Request, onChunk func(string) error) Result {
	streamer, ok := a.provider.(Streamer)
	if !ok {
		res := a.Solve(ctx, req)
		if res.Success {
			_ = onChunk(res.Text)
		}
		return res
	}

	var sent strings.Builder
	err := streamer.Stream(ctx, BuildMessages(req), func(chunk string) error {
		sent.WriteString(chunk)
		return onChunk(chunk)
	})
	if err == nil && strings.TrimSpace(sent.String()) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return a.fail(err)
	}
	a.record(true)
	return Result{Success: true, Text: sent.String()}
}

func (a *Advisor) fail(err error) Result {
	a.logger.Error("remediation request failed", "provider", a.provider.Name(), "error", err)
	a.record(false)
	return Result{Success: false, Text: Apology}
}

func (a *Advisor) record(success bool) {
	if a.stats != nil {
		a.stats.RecordRemediation(success)
	}
}
