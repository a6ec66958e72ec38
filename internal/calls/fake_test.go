package calls

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/seregajade-png/analysis-beauty/internal/llm"
	"github.com/seregajade-png/analysis-beauty/internal/queue"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/object/local"
)

const validOutput = `{"overallScore": 6, "stages": [{"key": "greeting", "score": 7}, {"key": "closing", "score": 5}]}`

var errModel = errors.New("model overloaded")

type fakeLLM struct {
	mu            sync.Mutex
	transcription llm.Transcription
	transcribeErr error
	output        string
	err           error
	audio         string
	user          string
}

func (f *fakeLLM) Transcribe(ctx context.Context, audio io.Reader, fileName, language string) (llm.Transcription, error) {
	raw, _ := io.ReadAll(audio)
	f.mu.Lock()
	f.audio = string(raw)
	f.mu.Unlock()
	return f.transcription, f.transcribeErr
}

func (f *fakeLLM) StreamCompletion(ctx context.Context, system, user string, emit func(string) error) error {
	f.mu.Lock()
	f.user = user
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	half := len(f.output) / 2
	if err := emit(f.output[:half]); err != nil {
		return err
	}
	return emit(f.output[half:])
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.user = user
	f.mu.Unlock()
	return f.output, f.err
}

func (f *fakeLLM) lastUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []queue.Job
}

func (f *fakeQueue) Publish(ctx context.Context, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, job)
	return nil
}

func newTestService(t *testing.T, model *fakeLLM) *Service {
	t.Helper()
	return &Service{
		Repo:        NewMemoryRepo(),
		Store:       local.New(t.TempDir()),
		Transcriber: model,
		Streamer:    model,
		Completer:   model,
	}
}

func sampleTranscription() llm.Transcription {
	return llm.Transcription{
		Text:     "Салон красоты, добрый день. Хочу записаться.",
		Duration: 9.4,
		Segments: []llm.Segment{
			{ID: 0, Start: 0, End: 2, Text: "Салон красоты, добрый день."},
			{ID: 1, Start: 3.5, End: 5, Text: "Хочу записаться."},
		},
	}
}

func uploadSample(t *testing.T, svc *Service) Call {
	t.Helper()
	call, err := svc.Upload(context.Background(), "user-1", UploadInput{
		FileName:    "call.mp3",
		ContentType: "audio/mpeg",
		Size:        3,
		Body:        strings.NewReader("ID3"),
		AdminName:   "Ольга",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return call
}
