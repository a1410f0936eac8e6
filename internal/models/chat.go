package models

import "time"

// Chat represents a conversation owned by a single user. It is persisted as
// one document; mutations append to Messages or change Name, never edit
// individual entries in place.
type Chat struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is an individual entry within a chat. Reasoning and
// ReasoningDurationMs are only ever populated on assistant messages, and an
// assistant message's content is immutable once its stream has ended.
type Message struct {
	Role                Role      `json:"role"`
	Content             string    `json:"content"`
	Model               string    `json:"model"`
	Timestamp           time.Time `json:"timestamp"`
	Reasoning           string    `json:"reasoning,omitempty"`
	ReasoningDurationMs int64     `json:"reasoningDurationMs,omitempty"`
	IsError             bool      `json:"isError,omitempty"`
}

// User mirrors the identity-provider record synced through the lifecycle
// webhook. No other path creates or mutates users.
type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a user message.
	RoleUser Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant Role = "assistant"
)
