// Package client implements the consumer side of the chat API: the CRUD
// calls, the streaming demultiplexer that folds frames into a conversation
// projection, and the list/selection controller an interactive UI drives.
// Nothing here persists anything; the server is the durability authority and
// the client's state is purely a projection for rendering.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teesien1998/Synthoria/internal/models"
)

// Client talks to the chat API on behalf of one signed-in user.
type Client struct {
	baseURL string
	token   string

	client *http.Client

	logger *slog.Logger
}

// New creates a Client for the API at baseURL, authenticating every request
// with the given bearer token.
func New(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{},
		logger:  logger.With(slog.String("module", "client")),
	}
}

type apiEnvelope struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Message string        `json:"message"`
	Chat    *models.Chat  `json:"chat"`
	Chats   []models.Chat `json:"chats"`
}

// CreateChat creates a new named chat and returns it.
func (c *Client) CreateChat(ctx context.Context, name string) (models.Chat, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/chat/create", map[string]string{"name": name})
	if err != nil {
		return models.Chat{}, err
	}
	if env.Chat == nil {
		return models.Chat{}, fmt.Errorf("create response carried no chat")
	}
	return *env.Chat, nil
}

// Chats fetches the caller's chats, most recently updated first.
func (c *Client) Chats(ctx context.Context) ([]models.Chat, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/api/chat/get", nil)
	if err != nil {
		return nil, err
	}
	return env.Chats, nil
}

// RenameChat changes a chat's display name and returns the updated chat.
func (c *Client) RenameChat(ctx context.Context, chatID, name string) (models.Chat, error) {
	env, err := c.doJSON(ctx, http.MethodPut, "/api/chat/rename",
		map[string]string{"chatId": chatID, "name": name})
	if err != nil {
		return models.Chat{}, err
	}
	if env.Chat == nil {
		return models.Chat{}, fmt.Errorf("rename response carried no chat")
	}
	return *env.Chat, nil
}

// DeleteChat removes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/api/chat/delete",
		map[string]string{"chatId": chatID})
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (apiEnvelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return apiEnvelope{}, fmt.Errorf("error marshaling request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return apiEnvelope{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return apiEnvelope{}, err
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apiEnvelope{}, fmt.Errorf("error decoding response: %w", err)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
		return env, fmt.Errorf("request failed: %s", env.Error)
	}

	return env, nil
}

// StreamUpdate observes one consistent snapshot of the conversation after
// each fold. The snapshot's message slice is freshly built per frame and is
// never mutated afterwards.
type StreamUpdate func(chat models.Chat)

// SendMessage submits one prompt on the given chat and folds the streamed
// reply into it. The provisional user message and the empty provisional
// assistant message are appended before the request is issued, so the first
// snapshot is observable immediately. The returned chat is the final
// projection; err carries either a transport failure or an in-band error
// frame surfaced for display.
func (c *Client) SendMessage(
	ctx context.Context,
	chat models.Chat,
	content, model string,
	onUpdate StreamUpdate,
) (models.Chat, error) {
	now := time.Now()
	chat.Messages = append(chat.Messages,
		models.Message{
			Role:      models.RoleUser,
			Content:   content,
			Model:     model,
			Timestamp: now,
		},
		models.Message{
			Role:      models.RoleAssistant,
			Model:     model,
			Timestamp: now,
		},
	)
	// The in-flight assistant entry keeps this index for the whole stream.
	assistantIdx := len(chat.Messages) - 1
	if onUpdate != nil {
		onUpdate(chat)
	}

	body, err := json.Marshal(map[string]string{
		"chatId":  chat.ID,
		"content": content,
		"model":   model,
	})
	if err != nil {
		return chat, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/chat/ai", bytes.NewReader(body))
	if err != nil {
		return chat, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return chat, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env apiEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			return chat, fmt.Errorf("request failed: %s", env.Error)
		}
		return chat, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return foldStream(resp.Body, chat, assistantIdx, onUpdate)
}
