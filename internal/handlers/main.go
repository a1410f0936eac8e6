package handlers

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/teesien1998/Synthoria/internal/models"
	"github.com/teesien1998/Synthoria/internal/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const errLoggerKey = "err"

// CompletionStreamer opens one streaming chat completion request upstream and
// yields decoded provider chunks in arrival order, with potential errors.
type CompletionStreamer interface {
	Chat(ctx context.Context, model, content string) iter.Seq2[services.ChatStreamChunk, error]
}

// Store defines the persistence operations the handlers need: chat documents
// addressed by owner, plus whole-document updates for appends and renames.
type Store interface {
	Chats(ctx context.Context, userID string) ([]models.Chat, error)
	AddChat(ctx context.Context, chat models.Chat) error
	Chat(ctx context.Context, userID, chatID string) (models.Chat, error)
	UpdateChat(ctx context.Context, chat models.Chat) error
	DeleteChat(ctx context.Context, userID, chatID string) error
}

// UserStore manages the identity records synced by the lifecycle webhook.
type UserStore interface {
	UpsertUser(ctx context.Context, user models.User) error
	DeleteUser(ctx context.Context, userID string) error
}

// Main handles the core functionality of the chat backend: the streaming
// relay endpoint, the chat CRUD endpoints, and the identity webhook.
type Main struct {
	llm   CompletionStreamer
	store Store
	users UserStore

	// allowedModels maps public model keys to upstream model identifiers.
	allowedModels map[string]string

	webhookSecret string
	streamTimeout time.Duration

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics mainMetrics
}

type mainMetrics struct {
	chatRequests metric.Int64Counter
	framesOut    metric.Int64Counter
}

// NewMain creates a new Main instance with the provided dependencies. The
// allowedModels map is the server-side model allow-list; streamTimeout is the
// coarse ceiling on one relay request (zero disables it).
func NewMain(
	llm CompletionStreamer,
	store Store,
	users UserStore,
	allowedModels map[string]string,
	webhookSecret string,
	streamTimeout time.Duration,
	logger *slog.Logger,
) (Main, error) {
	meter := otel.Meter("synthoria/handlers")
	chatRequests, err := meter.Int64Counter("chat.requests",
		metric.WithDescription("Streaming chat relay requests accepted"))
	if err != nil {
		return Main{}, err
	}
	framesOut, err := meter.Int64Counter("chat.frames",
		metric.WithDescription("Frames written to outbound chat streams"))
	if err != nil {
		return Main{}, err
	}

	return Main{
		llm:           llm,
		store:         store,
		users:         users,
		allowedModels: allowedModels,
		webhookSecret: webhookSecret,
		streamTimeout: streamTimeout,
		logger:        logger.With(slog.String("module", "handlers")),
		tracer:        otel.Tracer("synthoria/handlers"),
		metrics: mainMetrics{
			chatRequests: chatRequests,
			framesOut:    framesOut,
		},
	}, nil
}

// userID extracts the verified caller identity placed in the request context
// by the authorization middleware.
func (m Main) userID(r *http.Request) (string, bool) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.RegisteredClaims.Subject, true
}

type apiResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Message string        `json:"message,omitempty"`
	Chat    *models.Chat  `json:"chat,omitempty"`
	Chats   []models.Chat `json:"chats,omitempty"`
}

func (m Main) writeJSON(w http.ResponseWriter, status int, res apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		m.logger.Error("Failed to encode response", slog.String(errLoggerKey, err.Error()))
	}
}

func (m Main) writeError(w http.ResponseWriter, status int, msg string) {
	m.writeJSON(w, status, apiResponse{Error: msg})
}
