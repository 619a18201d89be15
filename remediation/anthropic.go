package remediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic completes conversations with the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic returns an Anthropic provider. baseURL may be empty to use
// the public API.
func NewAnthropic(apiKey, model, baseURL string, opts ...option.RequestOption) *Anthropic {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(60 * time.Second),
	}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	return &Anthropic{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     model,
		maxTokens: 1024,
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

// params converts the conversation. System messages become the top-level
// system prompt.
func (a *Anthropic) params(messages []Message) anthropic.MessageNewParams {
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
	}
	var system []string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			p.Messages = append(p.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			p.Messages = append(p.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(system) > 0 {
		p.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if len(p.Messages) == 0 {
		p.Messages = []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("How do I fix this issue?")),
		}
	}
	return p
}

// Complete returns the assistant's reply.
func (a *Anthropic) Complete(ctx context.Context, messages []Message) (string, error) {
	msg, err := a.client.Messages.New(ctx, a.params(messages))
	if err != nil {
		return "", wrapAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}

// Stream delivers the reply in chunks as the API produces them.
func (a *Anthropic) Stream(ctx context.Context, messages []Message, onChunk func(string) error) error {
	stream := a.client.Messages.NewStreaming(ctx, a.params(messages))
	defer stream.Close()

	for stream.Next() {
		event, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		delta, ok := event.Delta.AsAny().(anthropic.TextDelta)
		if !ok || delta.Text == "" {
			continue
		}
		if err := onChunk(delta.Text); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return wrapAnthropicError(err)
	}
	return nil
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic returned %d: %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("anthropic request: %w", err)
}
