package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/teesien1998/Synthoria/internal/models"
	"github.com/teesien1998/Synthoria/internal/services"
)

// HandleChatCreate creates a new, empty chat owned by the caller.
func (m Main) HandleChatCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := m.userID(r)
	if !ok {
		m.writeError(w, http.StatusUnauthorized, "User Unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		m.writeError(w, http.StatusBadRequest, "Chat name is required")
		return
	}

	now := time.Now()
	chat := models.Chat{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.AddChat(r.Context(), chat); err != nil {
		m.logger.Error("Failed to create chat", slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	m.writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "Chat created successfully",
		Chat:    &chat,
	})
}

// HandleChatList returns all chats owned by the caller, most recently
// updated first.
func (m Main) HandleChatList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := m.userID(r)
	if !ok {
		m.writeError(w, http.StatusUnauthorized, "User Unauthorized")
		return
	}

	chats, err := m.store.Chats(r.Context(), userID)
	if err != nil {
		m.logger.Error("Failed to list chats", slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}

	m.writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "All chats fetched successfully",
		Chats:   chats,
	})
}

// HandleChatRename changes a chat's display name.
func (m Main) HandleChatRename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := m.userID(r)
	if !ok {
		m.writeError(w, http.StatusUnauthorized, "User Unauthorized")
		return
	}

	var req struct {
		ChatID string `json:"chatId"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.ChatID == "" {
		m.writeError(w, http.StatusBadRequest, "Name and chatId are required")
		return
	}

	chat, err := m.store.Chat(r.Context(), userID, req.ChatID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			m.writeError(w, http.StatusNotFound, "Chat Not Found")
			return
		}
		m.logger.Error("Failed to load chat", slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chat.Name = req.Name
	chat.UpdatedAt = time.Now()
	if err := m.store.UpdateChat(r.Context(), chat); err != nil {
		m.logger.Error("Failed to rename chat", slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	m.writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Chat renamed successfully",
		Chat:    &chat,
	})
}

// HandleChatDelete removes a chat. Deleting a chat that no longer exists
// still succeeds.
func (m Main) HandleChatDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := m.userID(r)
	if !ok {
		m.writeError(w, http.StatusUnauthorized, "User Unauthorized")
		return
	}

	var req struct {
		ChatID string `json:"chatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" {
		m.writeError(w, http.StatusBadRequest, "ChatId is required")
		return
	}

	if err := m.store.DeleteChat(r.Context(), userID, req.ChatID); err != nil {
		m.logger.Error("Failed to delete chat", slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	m.writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Chat deleted successfully",
	})
}
