package handlers

import (
	"context"
	"encoding/json"
	"log"

	"github.com/irlrobot/garlc/pkg/dispatch"
)

// Helper continues a job handed off by a previous invocation.
type Helper struct {
	Engine *dispatch.Engine
	Log    *log.Logger
}

// Handle parses the handoff payload and processes the next step. Malformed
// payloads are logged and dropped; retrying them cannot succeed.
func (h *Helper) Handle(ctx context.Context, payload json.RawMessage) (bool, error) {
	logger := h.Log
	if logger == nil {
		logger = log.Default()
	}

	job, err := dispatch.ParseJob(payload)
	if err != nil {
		logger.Printf("Could not parse event! %v", err)
		return false, nil
	}
	return h.Engine.Handle(ctx, job), nil
}
