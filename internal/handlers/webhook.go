package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"
	"github.com/teesien1998/Synthoria/internal/models"
)

type clerkEmailAddress struct {
	EmailAddress string `json:"email_address"`
}

type clerkEventData struct {
	ID             string              `json:"id"`
	EmailAddresses []clerkEmailAddress `json:"email_addresses"`
	FirstName      string              `json:"first_name"`
	LastName       string              `json:"last_name"`
	ImageURL       string              `json:"image_url"`
}

type clerkEvent struct {
	Type string         `json:"type"`
	Data clerkEventData `json:"data"`
}

// HandleClerkWebhook receives signed identity lifecycle events and keeps the
// local user records in sync. The signature is verified before the payload is
// trusted; unknown event types are acknowledged and ignored.
func (m Main) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if m.webhookSecret == "" {
		m.writeError(w, http.StatusInternalServerError, "Missing CLERK_WEBHOOK_SECRET")
		return
	}

	wh, err := svix.NewWebhook(m.webhookSecret)
	if err != nil {
		m.logger.Error("Failed to create webhook verifier", slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		m.writeError(w, http.StatusBadRequest, "Failed to read payload")
		return
	}

	if err := wh.Verify(payload, r.Header); err != nil {
		m.logger.Error("Webhook signature verification failed", slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	var event clerkEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		m.writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
		user := models.User{
			ID:    event.Data.ID,
			Name:  strings.TrimSpace(event.Data.FirstName + " " + event.Data.LastName),
			Image: event.Data.ImageURL,
		}
		if len(event.Data.EmailAddresses) > 0 {
			user.Email = event.Data.EmailAddresses[0].EmailAddress
		}
		if err := m.users.UpsertUser(r.Context(), user); err != nil {
			m.logger.Error("Failed to upsert user",
				slog.String("userID", user.ID),
				slog.String(errLoggerKey, err.Error()))
			m.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case "user.deleted":
		if err := m.users.DeleteUser(r.Context(), event.Data.ID); err != nil {
			m.logger.Error("Failed to delete user",
				slog.String("userID", event.Data.ID),
				slog.String(errLoggerKey, err.Error()))
			m.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
	}

	m.writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Webhook Event Received",
	})
}
