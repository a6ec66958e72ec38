package chats

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// MemoryRepo stores chats in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Chat
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Chat)}
}

// Create stores the chat.
func (r *MemoryRepo) Create(ctx context.Context, chat Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[chat.ID] = chat
	return nil
}

// GetForUser returns a chat owned by userID.
func (r *MemoryRepo) GetForUser(ctx context.Context, userID, chatID string) (Chat, error) {
	if err := ctx.Err(); err != nil {
		return Chat{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	chat, ok := r.byID[chatID]
	if !ok || chat.UserID != userID {
		return Chat{}, analysis.ErrNotFound
	}
	return chat, nil
}

// ListByUser returns a user's chats, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Chat, error) {
	return r.list(ctx, userID, limit, func(Chat) bool { return true })
}

// ListCompleted returns a user's completed chats, newest first.
func (r *MemoryRepo) ListCompleted(ctx context.Context, userID string, limit int) ([]Chat, error) {
	return r.list(ctx, userID, limit, func(c Chat) bool { return c.Status == analysis.StatusCompleted })
}

func (r *MemoryRepo) list(ctx context.Context, userID string, limit int, keep func(Chat) bool) ([]Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Chat, 0)
	for _, c := range r.byID {
		if c.UserID == userID && keep(c) {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Complete marks the chat COMPLETED.
func (r *MemoryRepo) Complete(ctx context.Context, chatID string, result analysis.Result, stageScores map[string]float64) error {
	score := float64(result.OverallScore)
	return r.settle(ctx, chatID, func(c *Chat) {
		c.Status = analysis.StatusCompleted
		c.Result = &result
		c.OverallScore = &score
		c.StageScores = stageScores
	})
}

// Fail marks the chat FAILED.
func (r *MemoryRepo) Fail(ctx context.Context, chatID, message string) error {
	return r.settle(ctx, chatID, func(c *Chat) {
		c.Status = analysis.StatusFailed
		c.ErrorMessage = message
	})
}

func (r *MemoryRepo) settle(ctx context.Context, chatID string, apply func(*Chat)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.byID[chatID]
	if !ok {
		return analysis.ErrNotFound
	}
	if chat.Status.Terminal() {
		return analysis.ErrTerminalState
	}
	apply(&chat)
	chat.UpdatedAt = time.Now().UTC()
	r.byID[chatID] = chat
	return nil
}
