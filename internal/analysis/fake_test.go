package analysis

import (
	"context"
	"errors"
	"sync"
)

type recorded struct {
	status  Status
	result  Result
	scores  map[string]float64
	message string
}

type fakeRecorder struct {
	mu          sync.Mutex
	records     map[string]*recorded
	completeErr error
	failErr     error
}

func newFakeRecorder(ids ...string) *fakeRecorder {
	f := &fakeRecorder{records: make(map[string]*recorded)}
	for _, id := range ids {
		f.records[id] = &recorded{status: StatusAnalyzing}
	}
	return f
}

func (f *fakeRecorder) Complete(ctx context.Context, id string, result Result, scores map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	rec, ok := f.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.status.Terminal() {
		return ErrTerminalState
	}
	rec.status = StatusCompleted
	rec.result = result
	rec.scores = scores
	return nil
}

func (f *fakeRecorder) Fail(ctx context.Context, id string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	rec, ok := f.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.status.Terminal() {
		return ErrTerminalState
	}
	rec.status = StatusFailed
	rec.message = message
	return nil
}

func (f *fakeRecorder) get(id string) recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.records[id]
}

var errUpstream = errors.New("upstream: rate limited")

func fragments(parts []string, tail error) Upstream {
	return func(ctx context.Context, emit func(string) error) error {
		for _, p := range parts {
			if err := emit(p); err != nil {
				return err
			}
		}
		return tail
	}
}
