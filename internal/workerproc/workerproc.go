// Package workerproc runs queued call-analysis jobs. It is shared by the
// long-running SQS poller and the Lambda handler, which differ only in how
// they acknowledge a delivery.
package workerproc

import (
	"context"
	"errors"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	"github.com/seregajade-png/analysis-beauty/internal/queue"
	"github.com/seregajade-png/analysis-beauty/internal/shared/metrics"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

// Processor transcribes and analyzes one call. A nil error means the call
// reached a terminal state, even when the outcome is FAILED.
type Processor interface {
	ProcessCall(ctx context.Context, callID string) (analysis.Outcome, error)
}

// Action tells the transport what to do with the delivery.
type Action int

const (
	// Ack removes the delivery from the queue.
	Ack Action = iota
	// Retry leaves it for redelivery after the visibility timeout.
	Retry
)

// Result is the fate of one delivery.
type Result struct {
	Job     queue.Job
	Outcome analysis.Outcome
	Err     error
	Action  Action
}

// Handle parses body and processes the call it names. Malformed payloads
// and calls that are gone or already settled are acknowledged so they do
// not cycle through the queue; anything else is retried.
func Handle(ctx context.Context, p Processor, body string) Result {
	metrics.IncCallJobsReceived()
	job, err := queue.ParseJob(body)
	if err != nil {
		return Result{Job: job, Err: err, Action: Ack}
	}
	if p == nil {
		return Result{Job: job, Err: errors.New("call processor not configured"), Action: Retry}
	}

	outcome, err := p.ProcessCall(analysis.WithRequestID(ctx, job.RequestID), job.CallID)
	res := Result{Job: job, Outcome: outcome, Err: err, Action: Ack}
	if err != nil && !errors.Is(err, analysis.ErrNotFound) && !errors.Is(err, analysis.ErrTerminalState) {
		res.Action = Retry
	}
	return res
}

// Report logs res and updates the job counters. fields carries transport
// identifiers such as the SQS message id.
func Report(res Result, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	if res.Job.CallID != "" {
		fields["call_id"] = res.Job.CallID
	}
	if res.Job.RequestID != "" {
		fields["request_id"] = res.Job.RequestID
	}
	if !res.Job.EnqueuedAt.IsZero() {
		fields["queued_ms"] = time.Since(res.Job.EnqueuedAt).Milliseconds()
	}

	switch {
	case res.Action == Retry:
		fields["error"] = res.Err.Error()
		telemetry.Error("worker.call.failed", fields)
		metrics.IncCallJobsFailed()
	case errors.Is(res.Err, queue.ErrMalformedJob):
		fields["error"] = res.Err.Error()
		telemetry.Error("worker.call.malformed", fields)
		metrics.IncCallJobsDeletedUnrecoverable()
	case res.Err != nil:
		fields["error"] = res.Err.Error()
		telemetry.Warn("worker.call.dropped", fields)
		metrics.IncCallJobsDeletedUnrecoverable()
	case res.Outcome.Failed():
		fields["error"] = res.Outcome.Message
		telemetry.Warn("worker.call.settled_failed", fields)
		metrics.IncCallJobsFailed()
	default:
		telemetry.Info("worker.call.completed", fields)
		metrics.IncCallJobsCompleted()
	}
}
