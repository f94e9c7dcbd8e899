package audit

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	jobIDKey  contextKey = "garlc_job_id"
	loggerKey contextKey = "garlc_audit_logger"
)

// NewJobID generates a correlation ID for a new dispatch job.
func NewJobID() string {
	return uuid.New().String()
}

// ContextWithJobID stores the job's correlation ID in ctx.
func ContextWithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// JobIDFromContext returns the correlation ID stored in ctx, or "".
func JobIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(jobIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithLogger stores an audit logger in ctx.
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the audit logger stored in ctx, or nil.
// A nil *Logger is safe to use and drops every event.
func LoggerFromContext(ctx context.Context) *Logger {
	if v, ok := ctx.Value(loggerKey).(*Logger); ok {
		return v
	}
	return nil
}
