// Package llm defines the model collaborators used by analyses and the
// prompts sent to them.
package llm

import (
	"context"
	"errors"
	"io"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// ErrEmptyResponse is returned when the model produced no content.
var ErrEmptyResponse = errors.New("Пустой ответ от AI")

// ErrNotConfigured is returned by clients without credentials.
var ErrNotConfigured = errors.New("LLM client not configured")

// Streamer produces a completion fragment by fragment. emit is called for
// each non-empty fragment in order; a non-nil return from emit stops the stream.
type Streamer interface {
	StreamCompletion(ctx context.Context, system, user string, emit func(fragment string) error) error
}

// Completer returns a whole completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, fileName, language string) (Transcription, error)
}

// Segment is one timed piece of a transcription.
type Segment struct {
	ID      int     `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcription is the result of a speech-to-text call.
type Transcription struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
	Duration float64   `json:"duration,omitempty"`
}

// Upstream binds a streamer and a prompt pair into a relay upstream.
func Upstream(s Streamer, system, user string) analysis.Upstream {
	return func(ctx context.Context, emit func(string) error) error {
		if s == nil {
			return ErrNotConfigured
		}
		return s.StreamCompletion(ctx, system, user, emit)
	}
}
