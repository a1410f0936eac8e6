package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/tmaxmax/go-sse"
)

// OpenRouter opens streaming chat completion requests against the OpenRouter
// API. Every request carries a fixed system instruction and a single user
// turn; no multi-turn history is sent upstream.
type OpenRouter struct {
	apiKey       string
	systemPrompt string

	client *http.Client

	logger *slog.Logger
}

type openRouterChatRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatStreamChunk is one decoded unit of the provider's stream. Which of its
// optional fields are populated decides how the relay classifies it.
type ChatStreamChunk struct {
	Choices []ChatStreamChoice `json:"choices"`
	Error   *ChatStreamError   `json:"error,omitempty"`
}

// ChatStreamChoice wraps the incremental delta of one completion choice.
type ChatStreamChoice struct {
	Delta ChatStreamDelta `json:"delta"`
}

// ChatStreamDelta carries the visible answer fragment and, for reasoning
// models, the entries of the separate reasoning channel.
type ChatStreamDelta struct {
	Content          string            `json:"content"`
	ReasoningDetails []ReasoningDetail `json:"reasoning_details,omitempty"`
}

// ReasoningDetail is one entry of the provider's reasoning channel. Text is
// set for reasoning.text entries and Summary for reasoning.summary ones.
type ReasoningDetail struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// ChatStreamError is a provider-side error delivered in-band on the stream,
// distinct from a transport failure.
type ChatStreamError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const openRouterAPIEndpoint = "https://openrouter.ai/api/v1"

// NewOpenRouter creates a new OpenRouter instance with the specified API key
// and system prompt.
func NewOpenRouter(apiKey, systemPrompt string, logger *slog.Logger) OpenRouter {
	return OpenRouter{
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
		client:       &http.Client{},
		logger:       logger.With(slog.String("module", "openrouter")),
	}
}

// Chat opens exactly one streaming completion request and yields each decoded
// chunk in arrival order. The iterator stops at the provider's terminal
// sentinel; the context can be used to cancel the ongoing request.
func (o OpenRouter) Chat(ctx context.Context, model, content string) iter.Seq2[ChatStreamChunk, error] {
	return func(yield func(ChatStreamChunk, error) bool) {
		resp, err := o.doRequest(ctx, model, content)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield(ChatStreamChunk{}, fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		for ev, err := range sse.Read(resp.Body, nil) {
			if err != nil {
				yield(ChatStreamChunk{}, fmt.Errorf("error reading response: %w", err))
				return
			}

			o.logger.Debug("Received event",
				slog.String("event", ev.Data),
			)

			if ev.Data == "[DONE]" {
				break
			}

			var chunk ChatStreamChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				yield(ChatStreamChunk{}, fmt.Errorf("error unmarshaling response: %w", err))
				return
			}

			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (o OpenRouter) doRequest(ctx context.Context, model, content string) (*http.Response, error) {
	reqBody := openRouterChatRequest{
		Model: model,
		Messages: []openRouterMessage{
			{
				Role:    "system",
				Content: o.systemPrompt,
			},
			{
				Role:    "user",
				Content: content,
			},
		},
		Stream: true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	o.logger.Debug("Request Body", slog.String("body", string(jsonBody)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		openRouterAPIEndpoint+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/teesien1998/Synthoria")
	req.Header.Set("X-Title", "Synthoria")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
