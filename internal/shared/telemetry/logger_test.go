package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info("analysis.status", map[string]any{
		"analysis_id": "a-1",
		"status":      "ANALYZING",
		"error":       errors.New("boom"),
	})

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if payload["msg"] != "analysis.status" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "INFO" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts field")
	}
	if payload["error"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", payload["error"])
	}
}
