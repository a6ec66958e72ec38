// Package analysis holds the record lifecycle, result shape and the
// streaming relay shared by chat and call analyses.
package analysis

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an analysis record.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusTranscribing Status = "TRANSCRIBING"
	StatusAnalyzing    Status = "ANALYZING"
	StatusCompleted    Status = "COMPLETED"
	StatusFailed       Status = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is a forward lifecycle step.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusTranscribing:
		return from == StatusPending
	case StatusAnalyzing:
		return from == StatusPending || from == StatusTranscribing
	case StatusCompleted:
		return from == StatusAnalyzing
	case StatusFailed:
		return true
	}
	return false
}

// Source is the platform a chat transcript came from.
type Source string

const (
	SourceWhatsApp   Source = "WHATSAPP"
	SourceTelegram   Source = "TELEGRAM"
	SourceInstagram  Source = "INSTAGRAM"
	SourceText       Source = "TEXT"
	SourceScreenshot Source = "SCREENSHOT"
)

// ParseSource maps a raw tag to a Source. Empty input yields SourceText.
func ParseSource(raw string) (Source, error) {
	switch s := Source(strings.ToUpper(strings.TrimSpace(raw))); s {
	case "":
		return SourceText, nil
	case SourceWhatsApp, SourceTelegram, SourceInstagram, SourceText, SourceScreenshot:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, raw)
	}
}

// Kind names the record type a relay works on; used for logs and metrics.
type Kind string

const (
	KindChat Kind = "chat"
	KindCall Kind = "call"
)

// Input is the canonical decoded analysis request.
type Input struct {
	Text      string
	Source    Source
	AdminName string
	Title     string
	ImageKeys []string
}

// AdminNameOr returns the submitted administrator name, or fallback (the
// signed-in user's name) when none was given.
func AdminNameOr(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return strings.TrimSpace(fallback)
}
