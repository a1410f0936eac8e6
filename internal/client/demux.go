package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/teesien1998/Synthoria/internal/models"
	"github.com/teesien1998/Synthoria/internal/stream"
	"github.com/tmaxmax/go-sse"
)

// foldState accumulates one streamed assistant reply. The assistant entry is
// addressed by the index cached when it was appended, so no fold scans the
// message slice.
type foldState struct {
	chat         models.Chat
	assistantIdx int

	answer    strings.Builder
	reasoning strings.Builder

	onUpdate StreamUpdate

	errText string
}

// foldStream incrementally decodes the response body and folds each frame
// into the conversation projection. Frames are applied strictly in arrival
// order; malformed payloads are dropped without surfacing anything. The fold
// stops at the terminal sentinel or at the first error frame.
func foldStream(body io.Reader, chat models.Chat, assistantIdx int, onUpdate StreamUpdate) (models.Chat, error) {
	st := &foldState{
		chat:         chat,
		assistantIdx: assistantIdx,
		onUpdate:     onUpdate,
	}

	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			return st.chat, fmt.Errorf("error reading stream: %w", err)
		}

		if ev.Data == stream.Terminal {
			break
		}

		frame, err := stream.Decode(ev.Data)
		if err != nil {
			continue
		}

		if stop := st.apply(frame); stop {
			break
		}
	}

	if st.errText != "" {
		return st.chat, fmt.Errorf("assistant error: %s", st.errText)
	}
	return st.chat, nil
}

// apply folds one frame into the in-flight assistant message and publishes a
// fresh snapshot. It reports whether processing should stop.
func (s *foldState) apply(f stream.Frame) (stop bool) {
	msg := s.chat.Messages[s.assistantIdx]

	switch f.Type {
	case stream.FrameError:
		msg.Content = f.Error
		msg.IsError = true
		s.errText = f.Error
		stop = true
	case stream.FrameReasoningDuration:
		// The server sends the running total; replace, never accumulate.
		msg.ReasoningDurationMs = f.DurationMs
	case stream.FrameReasoning:
		s.reasoning.WriteString(f.Delta)
		msg.Reasoning = s.reasoning.String()
	case stream.FrameAnswer:
		s.answer.WriteString(f.Delta)
		msg.Content = s.answer.String()
	}

	s.publish(msg)
	return stop
}

// publish rebuilds the message slice around the updated entry so an observer
// always sees one consistent snapshot per frame.
func (s *foldState) publish(msg models.Message) {
	next := make([]models.Message, len(s.chat.Messages))
	copy(next, s.chat.Messages)
	next[s.assistantIdx] = msg
	s.chat.Messages = next

	if s.onUpdate != nil {
		s.onUpdate(s.chat)
	}
}
