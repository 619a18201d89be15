package remediation

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI completes conversations with the OpenAI chat API.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI returns an OpenAI provider. baseURL may be empty to use the
// public API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: 1024,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) request(messages []Message, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		MaxTokens:   o.maxTokens,
		Temperature: 0.7,
		Stream:      stream,
	}
}

// Complete returns the assistant's reply.
func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(messages, false))
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream delivers the reply in chunks as the API produces them.
func (o *OpenAI) Stream(ctx context.Context, messages []Message, onChunk func(string) error) error {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.request(messages, true))
	if err != nil {
		return fmt.Errorf("openai chat stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("openai chat stream: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onChunk(resp.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}
