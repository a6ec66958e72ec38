package chats

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// Service contains business logic for chat analyses.
type Service struct {
	Repo      Repo
	Streamer  llm.Streamer
	Completer llm.Completer
	Parser    analysis.ResultParser
	Now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, streamer llm.Streamer, completer llm.Completer) *Service {
	return &Service{Repo: repo, Streamer: streamer, Completer: completer}
}

// Create records a new chat in ANALYZING for userID.
func (s *Service) Create(ctx context.Context, userID string, in analysis.Input) (Chat, error) {
	if userID == "" {
		return Chat{}, errors.New("userID is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DefaultTitle
	}
	images := in.ImageKeys
	if images == nil {
		images = []string{}
	}
	now := s.now()
	chat := Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		AdminName: in.AdminName,
		Title:     title,
		Source:    in.Source,
		RawText:   in.Text,
		ImageURLs: images,
		Status:    analysis.StatusAnalyzing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, chat); err != nil {
		return Chat{}, err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  analysis.RequestIDFromContext(ctx),
		"analysis_id": chat.ID,
		"kind":        string(analysis.KindChat),
		"status":      string(chat.Status),
		"user_id":     userID,
	})
	return chat, nil
}

// Stream starts the streaming analysis of chat.
func (s *Service) Stream(ctx context.Context, chat Chat) *analysis.Stream {
	relay := analysis.Relay{Completion: s.completion()}
	return relay.Start(ctx, chat.ID, llm.Upstream(s.Streamer, llm.ChatSystemPrompt, llm.ChatUserMessage(chat.Input())))
}

// Analyze runs the analysis of chat without streaming.
func (s *Service) Analyze(ctx context.Context, chat Chat) analysis.Outcome {
	return s.completion().Run(ctx, chat.ID, func(ctx context.Context) (string, error) {
		if s.Completer == nil {
			return "", llm.ErrNotConfigured
		}
		return s.Completer.Complete(ctx, llm.ChatSystemPrompt, llm.ChatUserMessage(chat.Input()))
	})
}

// Get returns a chat owned by userID.
func (s *Service) Get(ctx context.Context, userID, chatID string) (Chat, error) {
	return s.Repo.GetForUser(ctx, userID, chatID)
}

// List returns the user's chats, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Chat, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// RecentCompleted returns up to limit completed chats of userID.
func (s *Service) RecentCompleted(ctx context.Context, userID string, limit int) ([]Chat, error) {
	return s.Repo.ListCompleted(ctx, userID, limit)
}

func (s *Service) completion() analysis.Completion {
	return analysis.Completion{Kind: analysis.KindChat, Recorder: s.Repo, Parser: s.Parser}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
