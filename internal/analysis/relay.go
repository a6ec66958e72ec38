package analysis

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/shared/metrics"
	"github.com/seregajade-png/analysis-beauty/internal/shared/sse"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
)

const defaultPersistTimeout = 15 * time.Second

// Upstream produces text fragments in order by calling emit for each one.
// It must stop and return when emit returns an error.
type Upstream func(ctx context.Context, emit func(fragment string) error) error

// Relay runs an upstream completion and turns it into an SSE event stream.
type Relay struct {
	Completion     Completion
	PersistTimeout time.Duration
}

// Stream is the consumer side of one relay run. Events yields zero or more
// chunk events followed by exactly one terminal event, then closes.
type Stream struct {
	events chan sse.Event
	cancel context.CancelCauseFunc
}

// Start launches the producer for record id. The producer is detached from
// ctx cancellation; only Abort stops the upstream call. Callers must consume
// the stream with Deliver or Drain.
func (r *Relay) Start(ctx context.Context, id string, upstream Upstream) *Stream {
	pctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	s := &Stream{events: make(chan sse.Event), cancel: cancel}
	metrics.IncAnalysisStarted(string(r.Completion.Kind))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"analysis_id": id,
		"kind":        string(r.Completion.Kind),
		"status":      string(StatusAnalyzing),
	})
	go r.produce(pctx, s, id, upstream)
	return s
}

// Events exposes the event channel.
func (s *Stream) Events() <-chan sse.Event { return s.events }

// Abort cancels the upstream call with cause. The producer still records the
// terminal state and emits the terminal event.
func (s *Stream) Abort(cause error) {
	s.cancel(cause)
}

// Drain discards remaining events until the producer finishes.
func (s *Stream) Drain() {
	for range s.events {
	}
}

// Deliver writes each event to w and calls flush after it. When gone closes
// or a write fails the stream is aborted with ErrClientGone and the rest of
// the events are drained. It returns the number of events written.
func (s *Stream) Deliver(w io.Writer, flush func(), gone <-chan struct{}) (int, error) {
	var (
		written int
		failed  error
	)
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return written, failed
			}
			if failed != nil {
				continue
			}
			if err := sse.Write(w, ev); err != nil {
				failed = err
				s.Abort(ErrClientGone)
				continue
			}
			written++
			if flush != nil {
				flush()
			}
		case <-gone:
			gone = nil
			if failed == nil {
				failed = ErrClientGone
			}
			s.Abort(ErrClientGone)
		}
	}
}

func (r *Relay) produce(ctx context.Context, s *Stream, id string, upstream Upstream) {
	defer close(s.events)
	defer s.cancel(nil)

	started := time.Now()
	var (
		acc    strings.Builder
		chunks int
	)
	err := runUpstream(ctx, upstream, func(fragment string) error {
		if fragment == "" {
			return nil
		}
		acc.WriteString(fragment)
		select {
		case s.events <- sse.Chunk(fragment):
			chunks++
			return nil
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	})
	if err != nil && ctx.Err() != nil {
		err = context.Cause(ctx)
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.persistTimeout())
	defer cancel()
	outcome := r.Completion.Settle(persistCtx, id, acc.String(), err)
	terminal := outcome.Event()
	s.events <- terminal

	kind := string(r.Completion.Kind)
	metrics.AddStreamChunks(kind, chunks)
	metrics.ObserveAnalysisDurationMs(metrics.Since(started))
	fields := map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"analysis_id": id,
		"kind":        kind,
		"event":       terminal.Name,
		"chunks":      chunks,
		"duration_ms": metrics.Since(started),
	}
	if outcome.Failed() {
		metrics.IncAnalysisFailed(kind)
		fields["status"] = string(StatusFailed)
		fields["error"] = outcome.Message
		telemetry.Warn("analysis.stream", fields)
		return
	}
	metrics.IncAnalysisCompleted(kind)
	fields["status"] = string(StatusCompleted)
	telemetry.Info("analysis.stream", fields)
}

func runUpstream(ctx context.Context, upstream Upstream, emit func(string) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return upstream(ctx, emit)
}

func (r *Relay) persistTimeout() time.Duration {
	if r.PersistTimeout > 0 {
		return r.PersistTimeout
	}
	return defaultPersistTimeout
}
