package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// MemoryRepo stores calls in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Call
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Call)}
}

// Create stores the call.
func (r *MemoryRepo) Create(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[call.ID] = call
	return nil
}

// Get returns a call by ID.
func (r *MemoryRepo) Get(ctx context.Context, callID string) (Call, error) {
	if err := ctx.Err(); err != nil {
		return Call{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	call, ok := r.byID[callID]
	if !ok {
		return Call{}, analysis.ErrNotFound
	}
	return call, nil
}

// GetForUser returns a call owned by userID.
func (r *MemoryRepo) GetForUser(ctx context.Context, userID, callID string) (Call, error) {
	call, err := r.Get(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	if call.UserID != userID {
		return Call{}, analysis.ErrNotFound
	}
	return call, nil
}

// ListByUser returns a user's calls, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Call, error) {
	return r.list(ctx, userID, limit, func(Call) bool { return true })
}

// ListCompleted returns a user's completed calls, newest first.
func (r *MemoryRepo) ListCompleted(ctx context.Context, userID string, limit int) ([]Call, error) {
	return r.list(ctx, userID, limit, func(c Call) bool { return c.Status == analysis.StatusCompleted })
}

func (r *MemoryRepo) list(ctx context.Context, userID string, limit int, keep func(Call) bool) ([]Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Call, 0)
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

// MarkTranscribing moves the call to TRANSCRIBING.
func (r *MemoryRepo) MarkTranscribing(ctx context.Context, callID string) error {
	return r.transition(ctx, callID, analysis.StatusTranscribing, func(c *Call) {
		c.Status = analysis.StatusTranscribing
	})
}

// AttachTranscript stores t and moves the call to ANALYZING.
func (r *MemoryRepo) AttachTranscript(ctx context.Context, callID string, t Transcript) error {
	return r.transition(ctx, callID, analysis.StatusAnalyzing, func(c *Call) {
		duration := t.DurationSeconds
		c.Status = analysis.StatusAnalyzing
		c.Transcription = t.Text
		c.SpeakerSegments = t.Segments
		c.DurationSeconds = &duration
	})
}

// Complete marks the call COMPLETED.
func (r *MemoryRepo) Complete(ctx context.Context, callID string, result analysis.Result, stageScores map[string]float64) error {
	score := float64(result.OverallScore)
	return r.transition(ctx, callID, analysis.StatusCompleted, func(c *Call) {
		c.Status = analysis.StatusCompleted
		c.Result = &result
		c.OverallScore = &score
		c.StageScores = stageScores
	})
}

// Fail marks the call FAILED.
func (r *MemoryRepo) Fail(ctx context.Context, callID, message string) error {
	return r.transition(ctx, callID, analysis.StatusFailed, func(c *Call) {
		c.Status = analysis.StatusFailed
		c.ErrorMessage = message
	})
}

func (r *MemoryRepo) transition(ctx context.Context, callID string, to analysis.Status, apply func(*Call)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.byID[callID]
	if !ok {
		return analysis.ErrNotFound
	}
	if !allowed(call.Status, to) {
		return analysis.ErrTerminalState
	}
	apply(&call)
	call.UpdatedAt = time.Now().UTC()
	r.byID[callID] = call
	return nil
}

// allowed extends analysis.CanTransition with the idempotent
// TRANSCRIBING -> TRANSCRIBING step used by redelivered jobs.
func allowed(from, to analysis.Status) bool {
	if from == analysis.StatusTranscribing && to == analysis.StatusTranscribing {
		return true
	}
	return analysis.CanTransition(from, to)
}
