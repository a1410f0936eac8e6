package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teesien1998/Synthoria/internal/models"
	"github.com/teesien1998/Synthoria/internal/services"
	"github.com/teesien1998/Synthoria/internal/stream"
	"github.com/tmaxmax/go-sse"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type chatStreamRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
	Model   string `json:"model"`
}

// chunkKind is the closed set of classifications for provider chunk content.
type chunkKind int

const (
	chunkReasoning chunkKind = iota
	chunkAnswer
	chunkError
)

// chunkEvent is one classified unit extracted from a provider chunk.
type chunkEvent struct {
	kind chunkKind
	text string
}

// classifyChunk flattens one provider chunk into classified events. A single
// chunk may carry several reasoning fragments and an answer fragment; a
// provider error preempts everything else in the chunk.
func classifyChunk(chunk services.ChatStreamChunk) []chunkEvent {
	if chunk.Error != nil {
		return []chunkEvent{{kind: chunkError, text: chunk.Error.Message}}
	}
	if len(chunk.Choices) == 0 {
		return nil
	}

	delta := chunk.Choices[0].Delta
	var events []chunkEvent
	for _, detail := range delta.ReasoningDetails {
		var text string
		switch detail.Type {
		case "reasoning.text":
			text = detail.Text
		case "reasoning.summary":
			text = detail.Summary
		}
		if text != "" {
			events = append(events, chunkEvent{kind: chunkReasoning, text: text})
		}
	}
	if delta.Content != "" {
		events = append(events, chunkEvent{kind: chunkAnswer, text: delta.Content})
	}
	return events
}

// HandleChatAI is the streaming relay endpoint. It validates the request,
// persists the user message before any frame is written, then forwards
// classified provider chunks to the client as text/event-stream frames and
// persists the completed assistant message. At most two durable writes happen
// per request, however many chunks arrive.
func (m Main) HandleChatAI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := m.userID(r)
	if !ok {
		m.writeError(w, http.StatusUnauthorized, "User Unauthorized")
		return
	}

	var req chatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upstreamModel, ok := m.allowedModels[req.Model]
	if !ok {
		m.writeError(w, http.StatusBadRequest, "Invalid Model")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		m.writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ctx := r.Context()
	if m.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.streamTimeout)
		defer cancel()
	}

	chat, err := m.store.Chat(ctx, userID, req.ChatID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			m.writeError(w, http.StatusNotFound, "Chat Not Found")
			return
		}
		m.logger.Error("Failed to load chat",
			slog.String("chatID", req.ChatID),
			slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The user message must be durable before the response begins, so a
	// client disconnect mid-stream never loses the user's own prompt.
	now := time.Now()
	chat.Messages = append(chat.Messages, models.Message{
		Role:      models.RoleUser,
		Content:   req.Content,
		Model:     req.Model,
		Timestamp: now,
	})
	chat.UpdatedAt = now
	if err := m.store.UpdateChat(ctx, chat); err != nil {
		m.logger.Error("Failed to persist user message",
			slog.String("chatID", chat.ID),
			slog.String(errLoggerKey, err.Error()))
		m.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	m.metrics.chatRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("model", req.Model)))

	ctx, span := m.tracer.Start(ctx, "chat.relay",
		trace.WithAttributes(attribute.String("model", req.Model)))
	defer span.End()

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	m.relay(ctx, w, flusher, chat, req.Model, upstreamModel, req.Content)
}

// relay drives one upstream completion stream to its end. Frames go out in
// classification order; reasoning growth is timed on a monotonic clock
// started lazily at the first reasoning delta. The terminal sentinel is
// written on every exit path.
func (m Main) relay(
	ctx context.Context,
	w io.Writer,
	flusher http.Flusher,
	chat models.Chat,
	modelKey, upstreamModel, content string,
) {
	defer func() {
		if err := m.writeData(ctx, w, flusher, stream.Terminal); err != nil {
			m.logger.Error("Failed to write terminal sentinel",
				slog.String(errLoggerKey, err.Error()))
		}
	}()

	var answer, reasoning strings.Builder
	var reasoningStart time.Time
	var reasoningDur time.Duration
	failed := false

chunks:
	for chunk, err := range m.llm.Chat(ctx, upstreamModel, content) {
		if err != nil {
			m.logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			failed = true
			_ = m.writeFrame(ctx, w, flusher, stream.Error(err.Error()))
			break
		}

		for _, ev := range classifyChunk(chunk) {
			switch ev.kind {
			case chunkReasoning:
				if reasoningStart.IsZero() {
					reasoningStart = time.Now()
				}
				reasoning.WriteString(ev.text)
				if err := m.writeFrame(ctx, w, flusher, stream.Reasoning(ev.text)); err != nil {
					return
				}
				reasoningDur = time.Since(reasoningStart)
				if err := m.writeFrame(ctx, w, flusher, stream.ReasoningDuration(reasoningDur.Milliseconds())); err != nil {
					return
				}
			case chunkAnswer:
				answer.WriteString(ev.text)
				if err := m.writeFrame(ctx, w, flusher, stream.Answer(ev.text)); err != nil {
					return
				}
			case chunkError:
				m.logger.Error("Provider error mid-stream", slog.String("error", ev.text))
				failed = true
				_ = m.writeFrame(ctx, w, flusher, stream.Error(ev.text))
				break chunks
			}
		}
	}

	if failed {
		// Partial output accumulated before the error is not persisted; the
		// error frame is the only artifact the client receives.
		return
	}

	final := models.Message{
		Role:      models.RoleAssistant,
		Content:   answer.String(),
		Model:     modelKey,
		Timestamp: time.Now(),
	}
	if reasoning.Len() > 0 {
		final.Reasoning = reasoning.String()
		final.ReasoningDurationMs = max(1, reasoningDur.Milliseconds())
	}

	chat.Messages = append(chat.Messages, final)
	chat.UpdatedAt = final.Timestamp
	if err := m.store.UpdateChat(ctx, chat); err != nil {
		m.logger.Error("Failed to persist assistant message",
			slog.String("chatID", chat.ID),
			slog.String(errLoggerKey, err.Error()))
		_ = m.writeFrame(ctx, w, flusher, stream.Error(err.Error()))
	}
}

func (m Main) writeFrame(ctx context.Context, w io.Writer, flusher http.Flusher, f stream.Frame) error {
	payload, err := f.Encode()
	if err != nil {
		return err
	}
	if err := m.writeData(ctx, w, flusher, payload); err != nil {
		return err
	}
	m.metrics.framesOut.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", string(f.Type))))
	return nil
}

func (m Main) writeData(_ context.Context, w io.Writer, flusher http.Flusher, data string) error {
	msg := &sse.Message{}
	msg.AppendData(data)
	if _, err := msg.WriteTo(w); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
