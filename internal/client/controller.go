package client

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/teesien1998/Synthoria/internal/models"
)

// Controller keeps the signed-in user's chat list and current selection in
// sync with the server. CRUD actions mutate the local cache optimistically,
// assuming server success; failures are only reported through the notify
// callback, never rolled back.
type Controller struct {
	client *Client
	notify func(string)

	logger *slog.Logger

	mu       sync.Mutex
	chats    []models.Chat
	selected string
}

const defaultChatName = "New Chat"

// NewController creates a Controller. notify receives short, non-blocking
// user-facing failure notices and may be nil.
func NewController(c *Client, notify func(string), logger *slog.Logger) *Controller {
	if notify == nil {
		notify = func(string) {}
	}
	return &Controller{
		client: c,
		notify: notify,
		logger: logger.With(slog.String("module", "controller")),
	}
}

// Bootstrap loads the chat list once identity is available. A user with no
// chats gets one default chat created and the list re-fetched; the most
// recently updated chat becomes the selection.
func (c *Controller) Bootstrap(ctx context.Context) error {
	chats, err := c.client.Chats(ctx)
	if err != nil {
		return err
	}

	if len(chats) == 0 {
		if _, err := c.client.CreateChat(ctx, defaultChatName); err != nil {
			return err
		}
		chats, err = c.client.Chats(ctx)
		if err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = chats
	if len(chats) > 0 {
		c.selected = chats[0].ID
	}
	return nil
}

// Chats returns a copy of the cached chat list.
func (c *Controller) Chats() []models.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.chats)
}

// Selected returns the currently selected chat.
func (c *Controller) Selected() (models.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(c.selected)
}

// Select changes the current selection. Selecting an unknown id is ignored.
func (c *Controller) Select(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(chatID); ok {
		c.selected = chatID
	}
}

// Create makes a new chat on the server and selects it.
func (c *Controller) Create(ctx context.Context, name string) (models.Chat, error) {
	chat, err := c.client.CreateChat(ctx, name)
	if err != nil {
		c.notify("Failed to create chat: " + err.Error())
		return models.Chat{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = append([]models.Chat{chat}, c.chats...)
	c.selected = chat.ID
	return chat, nil
}

// Rename updates the local name immediately, then tells the server.
func (c *Controller) Rename(ctx context.Context, chatID, name string) {
	c.mu.Lock()
	for i := range c.chats {
		if c.chats[i].ID == chatID {
			c.chats[i].Name = name
			break
		}
	}
	c.mu.Unlock()

	if _, err := c.client.RenameChat(ctx, chatID, name); err != nil {
		c.logger.Error("Rename failed", slog.String("chatID", chatID), slog.String("err", err.Error()))
		c.notify("Failed to rename chat: " + err.Error())
	}
}

// Delete drops the chat from the local cache immediately, moving the
// selection to the most recently updated remaining chat, then tells the
// server.
func (c *Controller) Delete(ctx context.Context, chatID string) {
	c.mu.Lock()
	c.chats = slices.DeleteFunc(c.chats, func(ch models.Chat) bool { return ch.ID == chatID })
	if c.selected == chatID {
		c.selected = ""
		if len(c.chats) > 0 {
			c.selected = c.chats[0].ID
		}
	}
	c.mu.Unlock()

	if err := c.client.DeleteChat(ctx, chatID); err != nil {
		c.logger.Error("Delete failed", slog.String("chatID", chatID), slog.String("err", err.Error()))
		c.notify("Failed to delete chat: " + err.Error())
	}
}

// Send submits a prompt on the selected chat, streaming folds through
// onUpdate and into the cache. The final projection replaces the cached chat.
func (c *Controller) Send(ctx context.Context, content, model string, onUpdate StreamUpdate) error {
	chat, ok := c.Selected()
	if !ok {
		c.notify("No chat selected")
		return nil
	}

	final, err := c.client.SendMessage(ctx, chat, content, model, func(snapshot models.Chat) {
		c.replace(snapshot)
		if onUpdate != nil {
			onUpdate(snapshot)
		}
	})
	c.replace(final)
	if err != nil {
		c.notify(err.Error())
	}
	return err
}

func (c *Controller) replace(chat models.Chat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.chats {
		if c.chats[i].ID == chat.ID {
			c.chats[i] = chat
			return
		}
	}
}

// lookup must be called with the mutex held.
func (c *Controller) lookup(chatID string) (models.Chat, bool) {
	for _, ch := range c.chats {
		if ch.ID == chatID {
			return ch, true
		}
	}
	return models.Chat{}, false
}
