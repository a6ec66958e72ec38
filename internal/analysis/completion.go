package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/shared/metrics"
	"github.com/seregajade-png/analysis-beauty/internal/shared/sse"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// Recorder persists terminal outcomes. Implementations refuse to move a
// record out of a terminal state and return ErrTerminalState instead.
type Recorder interface {
	Complete(ctx context.Context, id string, result Result, stageScores map[string]float64) error
	Fail(ctx context.Context, id string, message string) error
}

// Done is the payload of the done event.
type Done struct {
	ID     string `json:"id"`
	Result Result `json:"result"`
}

// Outcome is the settled state of one analysis run.
type Outcome struct {
	ID      string
	Result  Result
	Message string
	Err     error
}

// Failed reports whether the run ended in FAILED.
func (o Outcome) Failed() bool { return o.Err != nil }

// Event renders the terminal SSE event for the outcome.
func (o Outcome) Event() sse.Event {
	if o.Failed() {
		return sse.Error(o.Message)
	}
	return sse.Event{Name: sse.EventDone, Data: Done{ID: o.ID, Result: o.Result}}
}

// Completion parses accumulated model output and records the terminal state.
type Completion struct {
	Kind     Kind
	Recorder Recorder
	Parser   ResultParser
	// FailurePrefix is prepended to stored and emitted failure messages.
	FailurePrefix string
}

// Settle records COMPLETED or FAILED for id. The write is always attempted
// before returning; a failed write is logged and the outcome still returned.
func (c Completion) Settle(ctx context.Context, id, text string, upstreamErr error) Outcome {
	if upstreamErr != nil {
		return c.fail(ctx, id, upstreamErr)
	}
	parser := c.Parser
	if parser == nil {
		parser = DefaultParser
	}
	result, err := parser.Parse(text)
	if err != nil {
		return c.fail(ctx, id, err)
	}
	if err := c.Recorder.Complete(ctx, id, result, StageScores(result)); err != nil {
		telemetry.Error("analysis.persist_failed", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": id,
			"kind":        string(c.Kind),
			"status":      string(StatusCompleted),
			"error":       err,
		})
		if errors.Is(err, ErrTerminalState) {
			return Outcome{ID: id, Message: c.FailurePrefix + err.Error(), Err: err}
		}
		return c.fail(ctx, id, err)
	}
	return Outcome{ID: id, Result: result}
}

func (c Completion) fail(ctx context.Context, id string, cause error) Outcome {
	msg := c.FailurePrefix + cause.Error()
	if err := c.Recorder.Fail(ctx, id, msg); err != nil {
		telemetry.Error("analysis.persist_failed", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": id,
			"kind":        string(c.Kind),
			"status":      string(StatusFailed),
			"error":       err,
		})
	}
	return Outcome{ID: id, Message: msg, Err: cause}
}

// Run obtains the whole model output from complete and settles id. The
// terminal write runs detached from ctx cancellation.
func (c Completion) Run(ctx context.Context, id string, complete func(ctx context.Context) (string, error)) Outcome {
	kind := string(c.Kind)
	started := time.Now()
	metrics.IncAnalysisStarted(kind)
	text, err := complete(ctx)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPersistTimeout)
	defer cancel()
	outcome := c.Settle(persistCtx, id, text, err)

	metrics.ObserveAnalysisDurationMs(metrics.Since(started))
	fields := map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"analysis_id": id,
		"kind":        kind,
		"duration_ms": metrics.Since(started),
	}
	if outcome.Failed() {
		metrics.IncAnalysisFailed(kind)
		fields["status"] = string(StatusFailed)
		fields["error"] = outcome.Message
		telemetry.Warn("analysis.sync", fields)
		return outcome
	}
	metrics.IncAnalysisCompleted(kind)
	fields["status"] = string(StatusCompleted)
	telemetry.Info("analysis.sync", fields)
	return outcome
}
