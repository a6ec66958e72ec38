package calls

import (
	"context"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
)

// Repo defines persistence operations for call analyses. Status-changing
// methods refuse backward moves with analysis.ErrTerminalState.
type Repo interface {
	analysis.Recorder
	Create(ctx context.Context, call Call) error
	Get(ctx context.Context, callID string) (Call, error)
	GetForUser(ctx context.Context, userID, callID string) (Call, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Call, error)
	ListCompleted(ctx context.Context, userID string, limit int) ([]Call, error)
	// MarkTranscribing moves a PENDING or TRANSCRIBING call to TRANSCRIBING.
	MarkTranscribing(ctx context.Context, callID string) error
	// AttachTranscript stores the transcript and moves the call to ANALYZING.
	AttachTranscript(ctx context.Context, callID string, t Transcript) error
}
