package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/teesien1998/Synthoria/internal/client"
	"github.com/teesien1998/Synthoria/internal/models"
)

// crudServer is an in-memory stand-in for the chat API's CRUD surface.
type crudServer struct {
	mu    sync.Mutex
	chats []models.Chat

	failRename bool
	failDelete bool
}

func (s *crudServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/get", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "chats": s.chats})
	})
	mux.HandleFunc("/api/chat/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		chat := models.Chat{
			ID:        uuid.New().String(),
			UserID:    "user-1",
			Name:      req.Name,
			Messages:  []models.Message{},
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		s.mu.Lock()
		s.chats = append([]models.Chat{chat}, s.chats...)
		s.mu.Unlock()
		writeEnvelope(w, http.StatusCreated, map[string]any{"success": true, "chat": chat})
	})
	mux.HandleFunc("/api/chat/rename", func(w http.ResponseWriter, r *http.Request) {
		if s.failRename {
			writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "error": "Chat Not Found"})
			return
		}
		var req struct {
			ChatID string `json:"chatId"`
			Name   string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.chats {
			if s.chats[i].ID == req.ChatID {
				s.chats[i].Name = req.Name
				writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "chat": s.chats[i]})
				return
			}
		}
		writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "error": "Chat Not Found"})
	})
	mux.HandleFunc("/api/chat/delete", func(w http.ResponseWriter, r *http.Request) {
		if s.failDelete {
			writeEnvelope(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal Server Error"})
			return
		}
		var req struct {
			ChatID string `json:"chatId"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.chats {
			if s.chats[i].ID == req.ChatID {
				s.chats = append(s.chats[:i], s.chats[i+1:]...)
				break
			}
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "message": "Chat deleted successfully"})
	})
	return mux
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func newTestController(t *testing.T, srv *crudServer, notify func(string)) *client.Controller {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	c := client.New(ts.URL, "token", discardLogger())
	return client.NewController(c, notify, discardLogger())
}

func TestBootstrapCreatesDefaultChat(t *testing.T) {
	srv := &crudServer{}
	ctrl := newTestController(t, srv, nil)

	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	chats := ctrl.Chats()
	if len(chats) != 1 {
		t.Fatalf("len(chats) = %d, want 1", len(chats))
	}
	if chats[0].Name != "New Chat" {
		t.Errorf("chat name = %q, want %q", chats[0].Name, "New Chat")
	}

	selected, ok := ctrl.Selected()
	if !ok || selected.ID != chats[0].ID {
		t.Errorf("selected = %+v, %v, want the default chat", selected, ok)
	}
}

func TestBootstrapSelectsFirstChat(t *testing.T) {
	srv := &crudServer{chats: []models.Chat{
		{ID: "recent", UserID: "user-1", Name: "Recent"},
		{ID: "older", UserID: "user-1", Name: "Older"},
	}}
	ctrl := newTestController(t, srv, nil)

	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	selected, ok := ctrl.Selected()
	if !ok || selected.ID != "recent" {
		t.Errorf("selected = %+v, want the first listed chat", selected)
	}
}

func TestCreateSelectsNewChat(t *testing.T) {
	srv := &crudServer{chats: []models.Chat{{ID: "old", UserID: "user-1", Name: "Old"}}}
	ctrl := newTestController(t, srv, nil)

	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	chat, err := ctrl.Create(context.Background(), "Fresh")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	selected, ok := ctrl.Selected()
	if !ok || selected.ID != chat.ID {
		t.Errorf("selected = %+v, want the new chat %q", selected, chat.ID)
	}
	if chats := ctrl.Chats(); chats[0].ID != chat.ID {
		t.Errorf("chats[0].ID = %q, want the new chat first", chats[0].ID)
	}
}

func TestRenameOptimisticWithFailureNotice(t *testing.T) {
	srv := &crudServer{
		chats:      []models.Chat{{ID: "chat-1", UserID: "user-1", Name: "Old Name"}},
		failRename: true,
	}
	var notices []string
	ctrl := newTestController(t, srv, func(msg string) { notices = append(notices, msg) })

	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	ctrl.Rename(context.Background(), "chat-1", "New Name")

	// The rename is applied locally even though the server rejected it.
	if got := ctrl.Chats()[0].Name; got != "New Name" {
		t.Errorf("local name = %q, want the optimistic rename", got)
	}
	if len(notices) != 1 {
		t.Errorf("notices = %v, want exactly one failure notice", notices)
	}
}

func TestDeleteReselects(t *testing.T) {
	srv := &crudServer{chats: []models.Chat{
		{ID: "first", UserID: "user-1", Name: "First"},
		{ID: "second", UserID: "user-1", Name: "Second"},
	}}
	ctrl := newTestController(t, srv, nil)

	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	ctrl.Delete(context.Background(), "first")

	selected, ok := ctrl.Selected()
	if !ok || selected.ID != "second" {
		t.Errorf("selected = %+v, want the remaining chat", selected)
	}
	if len(ctrl.Chats()) != 1 {
		t.Errorf("len(chats) = %d, want 1", len(ctrl.Chats()))
	}

	srv.mu.Lock()
	remaining := len(srv.chats)
	srv.mu.Unlock()
	if remaining != 1 {
		t.Errorf("server chats = %d, want 1", remaining)
	}
}

func TestDeleteFailureNotifies(t *testing.T) {
	srv := &crudServer{
		chats:      []models.Chat{{ID: "chat-1", UserID: "user-1", Name: "Only"}},
		failDelete: true,
	}
	var notices []string
	ctrl := newTestController(t, srv, func(msg string) { notices = append(notices, msg) })

	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	ctrl.Delete(context.Background(), "chat-1")

	// Removed locally regardless; the failure only surfaces as a notice.
	if len(ctrl.Chats()) != 0 {
		t.Errorf("len(chats) = %d, want 0", len(ctrl.Chats()))
	}
	if len(notices) != 1 {
		t.Errorf("notices = %v, want exactly one failure notice", notices)
	}
}
