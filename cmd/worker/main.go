package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seregajade-png/analysis-beauty/internal/bootstrap"
	"github.com/seregajade-png/analysis-beauty/internal/queue"
	"github.com/seregajade-png/analysis-beauty/internal/shared/config"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
	"github.com/seregajade-png/analysis-beauty/internal/workerproc"
)

const defaultSQSRegion = "eu-central-1"

func main() {
	if err := run(); err != nil {
		telemetry.Error("worker.exit", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	region := cfg.AWSRegion
	if region == "" {
		region = defaultSQSRegion
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q, err := queue.NewSQS(ctx, cfg.CallsQueueURL, region)
	if err != nil {
		return err
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	// Jobs are consumed here, never re-enqueued.
	app.CallsService.Queue = nil

	w := &worker{
		queue:       q,
		processor:   app.CallsService,
		concurrency: cfg.WorkerConcurrency,
		visibility:  cfg.CallsVisibilitySeconds,
	}
	telemetry.Info("worker.started", map[string]any{
		"queue":       cfg.CallsQueueURL,
		"concurrency": w.concurrency,
		"visibility":  w.visibility,
	})
	w.run(ctx, time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	return nil
}

type consumer interface {
	Receive(ctx context.Context, max, visibilitySeconds int) ([]queue.Delivery, error)
	Delete(ctx context.Context, d queue.Delivery) error
}

type worker struct {
	queue       consumer
	processor   workerproc.Processor
	concurrency int
	visibility  int
}

// run polls until ctx is cancelled, then waits up to grace for in-flight
// calls. Those keep running on a detached context so a deploy does not
// leave calls stuck in TRANSCRIBING.
func (w *worker) run(ctx context.Context, grace time.Duration) {
	var g errgroup.Group
	g.SetLimit(max(1, w.concurrency))

	for ctx.Err() == nil {
		deliveries, err := w.queue.Receive(ctx, w.concurrency, w.visibility)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			time.Sleep(time.Second)
			continue
		}
		for _, d := range deliveries {
			g.Go(func() error {
				w.handle(context.WithoutCancel(ctx), d)
				return nil
			})
		}
	}

	telemetry.Info("worker.draining", map[string]any{"grace": grace.String()})
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		telemetry.Warn("worker.drain_timeout", nil)
	}
}

func (w *worker) handle(ctx context.Context, d queue.Delivery) {
	res := workerproc.Handle(ctx, w.processor, d.Body)
	fields := map[string]any{
		"sqs_message_id": d.MessageID,
		"receive_count":  d.ReceiveCount,
	}
	if res.Action == workerproc.Ack {
		if err := w.queue.Delete(ctx, d); err != nil {
			fields["delete_error"] = err.Error()
		}
	}
	workerproc.Report(res, fields)
}
