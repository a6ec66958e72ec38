// Package sse writes Server-Sent Events in the
// "event: <name>\ndata: <json>\n\n" framing used by the analysis streams.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Event names.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// Event is a named SSE event whose Data is JSON-encoded on the wire.
type Event struct {
	Name string
	Data any
}

// Terminal reports whether the event ends a stream.
func (e Event) Terminal() bool {
	return e.Name == EventDone || e.Name == EventError
}

// Chunk builds a chunk event carrying a text fragment.
func Chunk(text string) Event {
	return Event{Name: EventChunk, Data: text}
}

// Error builds an error event carrying a human-readable message.
func Error(message string) Event {
	return Event{Name: EventError, Data: message}
}

// Encode renders a single event frame.
func Encode(e Event) ([]byte, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return nil, fmt.Errorf("sse: invalid event name %q", e.Name)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", name, err)
	}
	var buf bytes.Buffer
	buf.Grow(len(name) + len(data) + 16)
	buf.WriteString("event: ")
	buf.WriteString(name)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// Write encodes e to w.
func Write(w io.Writer, e Event) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// PrepareHeaders sets the streaming response headers.
func PrepareHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}
