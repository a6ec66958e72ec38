package calls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
	"github.com/seregajade-png/analysis-beauty/internal/queue"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/object"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// ErrQueueNotConfigured is returned by Enqueue without a job queue.
var ErrQueueNotConfigured = errors.New("job queue not configured")

// Service contains business logic for call analyses.
type Service struct {
	Repo        Repo
	Store       object.ObjectStore
	Transcriber llm.Transcriber
	Streamer    llm.Streamer
	Completer   llm.Completer
	Queue       queue.Publisher
	Parser      analysis.ResultParser
	Now         func() time.Time
}

// UploadInput is a validated-size audio upload.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	AdminName   string
	Title       string
}

// Upload validates and stores a recording and records a PENDING call.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (Call, error) {
	if in.Body == nil {
		return Call{}, ErrAudioRequired
	}
	if !AllowedAudioType(in.ContentType) {
		return Call{}, ErrUnsupportedAudio
	}
	if in.Size > MaxAudioBytes {
		return Call{}, ErrAudioTooLarge
	}
	fileName := strings.TrimSpace(in.FileName)
	if _, err := object.CleanFileName(fileName); err != nil {
		fileName = defaultAudioFileName
	}

	stored, err := s.Store.Save(ctx, object.PutInput{
		Folder:      audioFolder,
		Namespace:   userID,
		FileName:    fileName,
		ContentType: in.ContentType,
		Body:        io.LimitReader(in.Body, MaxAudioBytes+1),
	})
	if err != nil {
		return Call{}, fmt.Errorf("store audio: %w", err)
	}
	if stored.Size > MaxAudioBytes {
		return Call{}, ErrAudioTooLarge
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fileName
	}
	now := s.now()
	call := Call{
		ID:            uuid.NewString(),
		UserID:        userID,
		AdminName:     strings.TrimSpace(in.AdminName),
		Title:         title,
		AudioKey:      stored.Key,
		AudioFileName: fileName,
		Status:        analysis.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, call); err != nil {
		return Call{}, err
	}
	s.logStatus(ctx, call.ID, call.Status)
	return call, nil
}

// Queued reports whether analyses run on the worker.
func (s *Service) Queued() bool {
	return s.Queue != nil
}

// Enqueue hands the call to the worker.
func (s *Service) Enqueue(ctx context.Context, call Call) error {
	if s.Queue == nil {
		return ErrQueueNotConfigured
	}
	return s.Queue.Publish(ctx, queue.Job{
		CallID:     call.ID,
		RequestID:  analysis.RequestIDFromContext(ctx),
		EnqueuedAt: s.now().UTC(),
		Version:    queue.JobVersion,
	})
}

// ProcessCall transcribes and analyzes callID without streaming. The
// returned error is non-nil only when the call could not be settled.
func (s *Service) ProcessCall(ctx context.Context, callID string) (analysis.Outcome, error) {
	call, err := s.Repo.Get(ctx, callID)
	if err != nil {
		return analysis.Outcome{}, err
	}
	return s.Process(ctx, call)
}

// Process transcribes and analyzes call without streaming.
func (s *Service) Process(ctx context.Context, call Call) (analysis.Outcome, error) {
	transcript, failed, err := s.Prepare(ctx, call)
	if err != nil {
		return analysis.Outcome{}, err
	}
	if failed != nil {
		return *failed, nil
	}
	return s.completion().Run(ctx, call.ID, func(ctx context.Context) (string, error) {
		if s.Completer == nil {
			return "", llm.ErrNotConfigured
		}
		return s.Completer.Complete(ctx, llm.CallSystemPrompt, llm.CallUserMessage(transcript, call.AdminName))
	}), nil
}

// Stream relays the analysis of a prepared transcript.
func (s *Service) Stream(ctx context.Context, call Call, transcript string) *analysis.Stream {
	relay := analysis.Relay{Completion: s.completion()}
	return relay.Start(ctx, call.ID, llm.Upstream(s.Streamer, llm.CallSystemPrompt, llm.CallUserMessage(transcript, call.AdminName)))
}

// Prepare transcribes call and moves it to ANALYZING, returning the
// formatted transcript. A call already in ANALYZING with a transcript is
// reused. A transcription failure is recorded and returned as failed.
func (s *Service) Prepare(ctx context.Context, call Call) (string, *analysis.Outcome, error) {
	switch {
	case call.Status.Terminal():
		return "", nil, analysis.ErrTerminalState
	case call.Status == analysis.StatusAnalyzing && call.Transcription != "":
		return call.Transcription, nil, nil
	}
	if err := s.Repo.MarkTranscribing(ctx, call.ID); err != nil {
		return "", nil, err
	}
	s.logStatus(ctx, call.ID, analysis.StatusTranscribing)

	transcript, err := s.transcribe(ctx, call)
	if err != nil {
		out := s.settleTranscriptionFailure(ctx, call.ID, err)
		return "", &out, nil
	}

	// The transcript is paid for; store it even if the caller has gone.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.Repo.AttachTranscript(persistCtx, call.ID, transcript); err != nil {
		if errors.Is(err, analysis.ErrNotFound) || errors.Is(err, analysis.ErrTerminalState) {
			return "", nil, err
		}
		out := s.settleTranscriptionFailure(ctx, call.ID, fmt.Errorf("save transcript: %w", err))
		return "", &out, nil
	}
	s.logStatus(ctx, call.ID, analysis.StatusAnalyzing)
	return transcript.Text, nil, nil
}

// settleTranscriptionFailure records the call FAILED under a context that
// outlives the request.
func (s *Service) settleTranscriptionFailure(ctx context.Context, callID string, cause error) analysis.Outcome {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	c := analysis.Completion{Kind: analysis.KindCall, Recorder: s.Repo, FailurePrefix: transcriptionFailurePrefix}
	out := c.Settle(persistCtx, callID, "", cause)
	telemetry.Warn("analysis.transcription_failed", map[string]any{
		"request_id":  analysis.RequestIDFromContext(ctx),
		"analysis_id": callID,
		"kind":        string(analysis.KindCall),
		"error":       cause,
	})
	return out
}

func (s *Service) transcribe(ctx context.Context, call Call) (Transcript, error) {
	if s.Transcriber == nil {
		return Transcript{}, llm.ErrNotConfigured
	}
	if call.AudioKey == "" {
		return Transcript{}, errors.New("audio file missing")
	}
	rc, err := s.Store.Open(ctx, call.AudioKey)
	if err != nil {
		return Transcript{}, fmt.Errorf("open audio: %w", err)
	}
	defer rc.Close()

	fileName := call.AudioFileName
	if fileName == "" {
		fileName = defaultAudioFileName
	}
	t, err := s.Transcriber.Transcribe(ctx, rc, fileName, TranscribeLanguage)
	if err != nil {
		return Transcript{}, err
	}
	return BuildTranscript(t), nil
}

// Get returns a call owned by userID.
func (s *Service) Get(ctx context.Context, userID, callID string) (Call, error) {
	return s.Repo.GetForUser(ctx, userID, callID)
}

// List returns the user's calls, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Call, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// RecentCompleted returns up to limit completed calls of userID.
func (s *Service) RecentCompleted(ctx context.Context, userID string, limit int) ([]Call, error) {
	return s.Repo.ListCompleted(ctx, userID, limit)
}

func (s *Service) completion() analysis.Completion {
	return analysis.Completion{
		Kind:          analysis.KindCall,
		Recorder:      s.Repo,
		Parser:        s.Parser,
		FailurePrefix: analysisFailurePrefix,
	}
}

func (s *Service) logStatus(ctx context.Context, callID string, status analysis.Status) {
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  analysis.RequestIDFromContext(ctx),
		"analysis_id": callID,
		"kind":        string(analysis.KindCall),
		"status":      string(status),
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
