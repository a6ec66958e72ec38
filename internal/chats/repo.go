package chats

import (
	"context"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// Repo defines persistence operations for chat analyses. Complete and Fail
// return analysis.ErrTerminalState for records already settled.
type Repo interface {
	analysis.Recorder
	Create(ctx context.Context, chat Chat) error
	GetForUser(ctx context.Context, userID, chatID string) (Chat, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Chat, error)
	ListCompleted(ctx context.Context, userID string, limit int) ([]Chat, error)
}
