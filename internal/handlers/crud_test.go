package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teesien1998/Synthoria/internal/handlers"
)

func doCRUD(m handlers.Main, handler http.HandlerFunc, method, target, body, userID string) *httptest.ResponseRecorder {
	req := authedRequest(method, target, strings.NewReader(body), userID)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleChatCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		userID     string
		wantStatus int
	}{
		{
			name:       "Unauthorized",
			body:       `{"name":"My Chat"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Missing name",
			body:       `{}`,
			userID:     "user-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Created",
			body:       `{"name":"My Chat"}`,
			userID:     "user-1",
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			m := newTestMain(t, &mockStreamer{}, store, newMockUserStore())

			w := doCRUD(m, m.HandleChatCreate, http.MethodPost, "/api/chat/create", tt.body, tt.userID)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusCreated {
				if store.adds != 1 {
					t.Errorf("store adds = %d, want 1", store.adds)
				}
				if !strings.Contains(w.Body.String(), `"name":"My Chat"`) {
					t.Errorf("body = %q, want to contain the created chat", w.Body.String())
				}
			}
		})
	}
}

func TestHandleChatList(t *testing.T) {
	chat := testChat("user-1")
	store := newMockStore(chat)
	m := newTestMain(t, &mockStreamer{}, store, newMockUserStore())

	w := doCRUD(m, m.HandleChatList, http.MethodGet, "/api/chat/get", "", "user-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"_id":"chat-1"`) {
		t.Errorf("body = %q, want to contain chat-1", w.Body.String())
	}

	// Other users never see this chat.
	w = doCRUD(m, m.HandleChatList, http.MethodGet, "/api/chat/get", "", "user-2")
	if strings.Contains(w.Body.String(), "chat-1") {
		t.Errorf("body = %q leaked another user's chat", w.Body.String())
	}
}

func TestHandleChatRename(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		userID     string
		wantStatus int
	}{
		{
			name:       "Missing fields",
			body:       `{"chatId":"chat-1"}`,
			userID:     "user-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Not owned",
			body:       `{"chatId":"chat-1","name":"Renamed"}`,
			userID:     "user-2",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Renamed",
			body:       `{"chatId":"chat-1","name":"Renamed"}`,
			userID:     "user-1",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore(testChat("user-1"))
			m := newTestMain(t, &mockStreamer{}, store, newMockUserStore())

			w := doCRUD(m, m.HandleChatRename, http.MethodPut, "/api/chat/rename", tt.body, tt.userID)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got := store.chats["chat-1"].Name; got != "Renamed" {
					t.Errorf("chat name = %q, want %q", got, "Renamed")
				}
			}
		})
	}
}

func TestHandleChatDelete(t *testing.T) {
	store := newMockStore(testChat("user-1"))
	m := newTestMain(t, &mockStreamer{}, store, newMockUserStore())

	w := doCRUD(m, m.HandleChatDelete, http.MethodDelete, "/api/chat/delete", `{"chatId":"chat-1"}`, "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if _, ok := store.chats["chat-1"]; ok {
		t.Error("chat still present after delete")
	}

	// Deleting again is idempotent.
	w = doCRUD(m, m.HandleChatDelete, http.MethodDelete, "/api/chat/delete", `{"chatId":"chat-1"}`, "user-1")
	if w.Code != http.StatusOK {
		t.Errorf("repeat delete status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleChatRenameBumpsRecency(t *testing.T) {
	chat := testChat("user-1")
	chat.UpdatedAt = time.Now().Add(-time.Hour)
	store := newMockStore(chat)
	m := newTestMain(t, &mockStreamer{}, store, newMockUserStore())

	w := doCRUD(m, m.HandleChatRename, http.MethodPut, "/api/chat/rename",
		`{"chatId":"chat-1","name":"Renamed"}`, "user-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	if got := store.chats["chat-1"].UpdatedAt; !got.After(chat.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want later than %v", got, chat.UpdatedAt)
	}
}
