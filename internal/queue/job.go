// Package queue carries call-analysis jobs from the API to the worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobVersion is the payload version written by Publish. Workers reject
// newer versions instead of guessing at their fields.
const JobVersion = 1

// ErrMalformedJob marks payloads that can never be processed.
var ErrMalformedJob = errors.New("malformed call job")

// Job asks a worker to transcribe and analyze one uploaded call.
type Job struct {
	CallID     string    `json:"callId"`
	RequestID  string    `json:"requestId,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Version    int       `json:"version"`
}

// Publisher hands jobs to the worker fleet.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Encode returns the wire payload. A zero Version is stamped with JobVersion.
func (j Job) Encode() ([]byte, error) {
	if j.Version == 0 {
		j.Version = JobVersion
	}
	return json.Marshal(j)
}

// ParseJob decodes and validates a payload. Every error wraps ErrMalformedJob.
func ParseJob(body string) (Job, error) {
	if strings.TrimSpace(body) == "" {
		return Job{}, fmt.Errorf("%w: empty body", ErrMalformedJob)
	}
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	job.CallID = strings.TrimSpace(job.CallID)
	if job.CallID == "" {
		return job, fmt.Errorf("%w: missing callId", ErrMalformedJob)
	}
	if job.Version > JobVersion {
		return job, fmt.Errorf("%w: unsupported version %d", ErrMalformedJob, job.Version)
	}
	return job, nil
}
