package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/irlrobot/garlc/pkg/lifecycle"
)

// Job is the unit of work handed from one invocation to the next. The
// invocation holding a Job owns it; after a successful handoff the sender
// must not touch it again.
type Job struct {
	ID string `json:"JobId"`

	// ChunkedInstanceIDs holds the chunks not yet dispatched; the first is next.
	ChunkedInstanceIDs [][]string `json:"ChunkedInstanceIds"`
	Commands           []string   `json:"Commands"`

	// Completion targets. Either, both or neither may be set.
	PipelineJobID string            `json:"PipelineJobId,omitempty"`
	Lifecycle     *lifecycle.Action `json:"Lifecycle,omitempty"`

	TotalChunks  int            `json:"TotalChunks"`
	Delivered    int            `json:"Delivered"`
	FailedChunks []ChunkFailure `json:"FailedChunks,omitempty"`
	Step         int            `json:"Step"`

	// HeadAttempts counts throttled SendCommand calls already spent on the
	// first chunk of ChunkedInstanceIDs by earlier invocations.
	HeadAttempts int `json:"HeadAttempts,omitempty"`
}

// ChunkFailure records a chunk whose Run Command request was rejected.
type ChunkFailure struct {
	Index       int      `json:"Index"`
	InstanceIDs []string `json:"InstanceIds"`
	Reason      string   `json:"Reason"`
}

// NewJob creates a job over chunks sharing one command set.
func NewJob(id string, chunks [][]string, commands []string) *Job {
	return &Job{
		ID:                 id,
		ChunkedInstanceIDs: chunks,
		Commands:           commands,
		TotalChunks:        len(chunks),
	}
}

// ValidationError reports a job or trigger event that cannot be processed.
// It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid dispatch job: %s", e.Reason)
	}
	return fmt.Sprintf("invalid dispatch job: %s %s", e.Field, e.Reason)
}

// Validate checks the job's shape: both lists must be present and no chunk
// may be empty.
func (j *Job) Validate() error {
	if j == nil {
		return &ValidationError{Reason: "job is nil"}
	}
	if j.ChunkedInstanceIDs == nil {
		return &ValidationError{Field: "ChunkedInstanceIds", Reason: "is missing"}
	}
	if j.Commands == nil {
		return &ValidationError{Field: "Commands", Reason: "is missing"}
	}
	for i, c := range j.ChunkedInstanceIDs {
		if len(c) == 0 {
			return &ValidationError{Field: "ChunkedInstanceIds", Reason: fmt.Sprintf("chunk %d is empty", i)}
		}
	}
	return nil
}

// Remaining returns the number of chunks left to dispatch.
func (j *Job) Remaining() int {
	return len(j.ChunkedInstanceIDs)
}

// Succeeded reports whether every processed chunk was delivered.
func (j *Job) Succeeded() bool {
	return len(j.FailedChunks) == 0
}

// wireJob detects keys that are absent or null in a handoff payload.
type wireJob struct {
	Job
	ChunkedInstanceIDs *[][]string `json:"ChunkedInstanceIds"`
	Commands           *[]string   `json:"Commands"`
}

// ParseJob decodes a handoff payload. Payloads that are not JSON objects or
// lack either list return a *ValidationError.
func ParseJob(payload []byte) (*Job, error) {
	var w wireJob
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("could not parse event: %v", err)}
	}

	if w.ChunkedInstanceIDs == nil {
		return nil, &ValidationError{Field: "ChunkedInstanceIds", Reason: "is missing"}
	}
	if w.Commands == nil {
		return nil, &ValidationError{Field: "Commands", Reason: "is missing"}
	}

	job := w.Job
	job.ChunkedInstanceIDs = *w.ChunkedInstanceIDs
	job.Commands = *w.Commands
	if job.TotalChunks < len(job.ChunkedInstanceIDs) {
		job.TotalChunks = len(job.ChunkedInstanceIDs)
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}
