// Package stream defines the wire framing shared by the chat relay endpoint
// and its consumers. Each frame is carried as one data record of a
// text/event-stream response, holding a single JSON object. Deltas are
// incremental fragments, never the full accumulated value, so frame size
// stays bounded however long the reply grows.
package stream

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates the payload of a Frame.
type FrameType string

const (
	// FrameReasoning carries an incremental fragment of the model's
	// reasoning channel.
	FrameReasoning FrameType = "reasoning"
	// FrameReasoningDuration carries the running time spent reasoning so
	// far. The value replaces any previously received one.
	FrameReasoningDuration FrameType = "reasoning_duration"
	// FrameAnswer carries an incremental fragment of the visible answer.
	FrameAnswer FrameType = "answer"
	// FrameError carries a provider or transport error; no reasoning or
	// answer frames follow it.
	FrameError FrameType = "error"
)

// Terminal is the literal payload of the sentinel record that ends a stream.
// It is matched before JSON decoding and never parsed as a frame.
const Terminal = "[DONE]"

// Frame is the discriminated union written as one data record. Exactly the
// fields implied by Type are set.
type Frame struct {
	Type       FrameType `json:"type"`
	Delta      string    `json:"delta,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Reasoning builds a reasoning delta frame.
func Reasoning(delta string) Frame {
	return Frame{Type: FrameReasoning, Delta: delta}
}

// ReasoningDuration builds a running reasoning duration frame.
func ReasoningDuration(durationMs int64) Frame {
	return Frame{Type: FrameReasoningDuration, DurationMs: durationMs}
}

// Answer builds an answer delta frame.
func Answer(delta string) Frame {
	return Frame{Type: FrameAnswer, Delta: delta}
}

// Error builds an error frame.
func Error(text string) Frame {
	return Frame{Type: FrameError, Error: text}
}

// Encode renders the frame as the JSON payload of one data record.
func (f Frame) Encode() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frame: %w", err)
	}
	return string(b), nil
}

// Decode parses one data payload into a frame. Payloads that are not valid
// JSON or carry an unknown type are rejected; consumers drop them silently.
func Decode(data string) (Frame, error) {
	var f Frame
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return Frame{}, fmt.Errorf("failed to unmarshal frame: %w", err)
	}
	switch f.Type {
	case FrameReasoning, FrameReasoningDuration, FrameAnswer, FrameError:
		return f, nil
	default:
		return Frame{}, fmt.Errorf("unknown frame type: %q", f.Type)
	}
}
