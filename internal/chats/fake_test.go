package chats

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const validOutput = `{"overallScore": 7.5, "summary": "ok", "stages": [{"name": "Приветствие", "key": "greeting", "score": 8}]}`

var errUpstream = errors.New("upstream: connection reset")

type fakeStreamer struct {
	mu        sync.Mutex
	fragments []string
	err       error
	user      string
}

func (f *fakeStreamer) StreamCompletion(ctx context.Context, system, user string, emit func(string) error) error {
	f.mu.Lock()
	f.user = user
	f.mu.Unlock()
	for _, frag := range f.fragments {
		if err := emit(frag); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeStreamer) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.user = user
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.fragments, ""), nil
}

func (f *fakeStreamer) lastUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

type sseFrame struct {
	event string
	data  string
}

func parseFrames(body string) []sseFrame {
	var out []sseFrame
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var f sseFrame
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.data = strings.TrimPrefix(line, "data: ")
			}
		}
		out = append(out, f)
	}
	return out
}
