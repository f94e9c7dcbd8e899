package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Results recorded in audit events.
const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultDeferred = "deferred"
	ResultSkipped  = "skipped"
)

// Logger writes one JSON object per line for every externally visible step of
// a dispatch job: Run Command requests, handoffs and completion signals.
type Logger struct {
	// mu is shared by every logger derived from the same writer.
	mu       *sync.Mutex
	writer   io.Writer
	function string
	jobID    string
	now      func() time.Time
}

// Event is a single audit log entry.
type Event struct {
	Timestamp      time.Time              `json:"timestamp"`
	Level          string                 `json:"level"`
	Function       string                 `json:"function,omitempty"`
	JobID          string                 `json:"job_id,omitempty"`
	Operation      string                 `json:"operation"`
	Resource       string                 `json:"resource,omitempty"`
	Result         string                 `json:"result"`
	Error          string                 `json:"error,omitempty"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}

// NewLogger creates an audit logger. A nil writer discards events.
func NewLogger(writer io.Writer, function, jobID string) *Logger {
	if writer == nil {
		writer = io.Discard
	}

	return &Logger{
		mu:       &sync.Mutex{},
		writer:   writer,
		function: function,
		jobID:    jobID,
		now:      time.Now,
	}
}

// LogOperation records the outcome of an operation against a resource.
func (l *Logger) LogOperation(operation, resource, result string, err error) {
	l.LogOperationWithData(operation, resource, result, nil, err)
}

// LogOperationWithData records an operation with additional structured fields.
func (l *Logger) LogOperationWithData(operation, resource, result string, data map[string]interface{}, err error) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	event := Event{
		Timestamp:      l.now().UTC(),
		Level:          "info",
		Function:       l.function,
		JobID:          l.jobID,
		Operation:      operation,
		Resource:       resource,
		Result:         result,
		AdditionalData: data,
	}

	if err != nil {
		event.Level = "error"
		event.Error = err.Error()
	}

	_ = json.NewEncoder(l.writer).Encode(event)
}

// WithJob returns a logger sharing the writer but stamped with another job ID.
func (l *Logger) WithJob(jobID string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		mu:       l.mu,
		writer:   l.writer,
		function: l.function,
		jobID:    jobID,
		now:      l.now,
	}
}

// JobID returns the job the logger is stamped with.
func (l *Logger) JobID() string {
	if l == nil {
		return ""
	}
	return l.jobID
}
