package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/irlrobot/garlc/pkg/audit"
	"github.com/irlrobot/garlc/pkg/metrics"
)

const (
	DefaultDocumentName     = "AWS-RunShellScript"
	DefaultFunctionName     = "garlc_runcommand_helper"
	DefaultExecutionTimeout = 600 * time.Second
	DefaultCallTimeout      = 30 * time.Second
	DefaultSafetyMargin     = 30 * time.Second

	maxCommentLength = 100
)

type marginKey struct{}

// Job statuses passed to a Tracker.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusAborted   = "ABORTED"
)

// SSMAPI is the subset of the Systems Manager client used to send commands.
type SSMAPI interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
}

// LambdaAPI is the subset of the Lambda client used for handoffs.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Completer is told once how a job ended. Complete runs in the invocation that
// dispatched the last chunk; Abort runs when the remaining chunks could not be
// handed off and will never be dispatched.
type Completer interface {
	Complete(ctx context.Context, job *Job) bool
	Abort(ctx context.Context, job *Job, reason string)
}

// Tracker records job progress after every step. Failures must not affect dispatch.
type Tracker interface {
	Track(ctx context.Context, job *Job, status string)
}

// Config controls how commands are sent and how work is split across invocations.
type Config struct {
	// FunctionName receives the handoff payload.
	FunctionName string

	DocumentName string
	// ExecutionTimeout bounds how long the script may run on each instance.
	ExecutionTimeout time.Duration
	// CallTimeout bounds a single SendCommand or Invoke call.
	CallTimeout time.Duration

	OutputS3Bucket string
	OutputS3Prefix string

	// ChunksPerInvocation is the most chunks dispatched before handing off.
	ChunksPerInvocation int
	// SafetyMargin is the time left before the invocation deadline at which
	// no further chunk or retry is started.
	SafetyMargin time.Duration

	Throttle RetryPolicy
	Handoff  RetryPolicy
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FunctionName:        DefaultFunctionName,
		DocumentName:        DefaultDocumentName,
		ExecutionTimeout:    DefaultExecutionTimeout,
		CallTimeout:         DefaultCallTimeout,
		ChunksPerInvocation: 1,
		SafetyMargin:        DefaultSafetyMargin,
		Throttle:            DefaultThrottlePolicy(),
		Handoff:             DefaultHandoffPolicy(),
	}
}

// Engine dispatches a job's chunks and hands the remainder to a fresh
// invocation so no single invocation outlives its time budget.
type Engine struct {
	ssm    SSMAPI
	lambda LambdaAPI
	cfg    Config

	completer Completer
	tracker   Tracker
	log       *log.Logger
	audit     *audit.Logger
	metrics   *metrics.Recorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCompleter sets who is told when a job ends.
func WithCompleter(c Completer) Option {
	return func(e *Engine) { e.completer = c }
}

// WithTracker records progress after each step.
func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithLogger sets the operational logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithAudit sets the structured audit logger.
func WithAudit(a *audit.Logger) Option {
	return func(e *Engine) { e.audit = a }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock replaces time.Now for deadline arithmetic.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleep replaces the retry wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithRand replaces the jitter source.
func WithRand(rnd func() float64) Option {
	return func(e *Engine) { e.rand = rnd }
}

// NewEngine creates an Engine. Zero fields in cfg take their defaults; output
// bucket settings stay unset.
func NewEngine(ssmClient SSMAPI, lambdaClient LambdaAPI, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.FunctionName == "" {
		cfg.FunctionName = def.FunctionName
	}
	if cfg.DocumentName == "" {
		cfg.DocumentName = def.DocumentName
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = def.ExecutionTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	if cfg.ChunksPerInvocation < 1 {
		cfg.ChunksPerInvocation = 1
	}
	if cfg.Throttle == (RetryPolicy{}) {
		cfg.Throttle = def.Throttle
	}
	if cfg.Handoff == (RetryPolicy{}) {
		cfg.Handoff = def.Handoff
	}

	e := &Engine{
		ssm:       ssmClient,
		lambda:    lambdaClient,
		cfg:       cfg,
		completer: LogCompleter{},
		log:       log.Default(),
		now:       time.Now,
		sleep:     sleepContext,
		rand:      rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle processes one step of job: it dispatches up to ChunksPerInvocation
// chunks and then either hands off the rest or, when nothing remains, signals
// completion. It returns whether the handoff or terminal step succeeded;
// individual chunk failures are carried in the job and reported at completion.
func (e *Engine) Handle(ctx context.Context, job *Job) bool {
	if err := job.Validate(); err != nil {
		e.log.Printf("Could not parse event! %v", err)
		e.audit.LogOperation("handle", "", audit.ResultFailed, err)
		return false
	}

	aud := e.audit.WithJob(job.ID)
	ctx = audit.ContextWithLogger(audit.ContextWithJobID(ctx, job.ID), aud)
	ctx = e.withMargin(ctx, job.ID)
	job.Step++
	e.log.Printf("Job %s step %d: %d of %d chunk(s) remaining", job.ID, job.Step, job.Remaining(), job.TotalChunks)

	for n := 0; n < e.cfg.ChunksPerInvocation && job.Remaining() > 0; n++ {
		if n > 0 && !e.hasTime(ctx, 0) {
			e.log.Printf("Job %s: invocation budget spent after %d chunk(s)", job.ID, n)
			break
		}

		chunk := job.ChunkedInstanceIDs[0]
		index := job.TotalChunks - job.Remaining()
		job.ChunkedInstanceIDs = job.ChunkedInstanceIDs[1:]

		outcome := e.DispatchChunk(ctx, job, index, chunk)
		e.metrics.Chunk(outcome.Status.String(), len(chunk))
		aud.LogOperationWithData("send_command", fmt.Sprintf("chunk-%d", index), resultFor(outcome.Status), map[string]interface{}{
			"instances":  len(chunk),
			"attempts":   outcome.Attempts,
			"command_id": outcome.CommandID,
			"reason":     outcome.Reason,
		}, nil)

		if outcome.Status == Deferred {
			job.ChunkedInstanceIDs = append([][]string{chunk}, job.ChunkedInstanceIDs...)
			job.HeadAttempts = outcome.Attempts
			break
		}
		job.HeadAttempts = 0
		if outcome.Status == Failed {
			job.FailedChunks = append(job.FailedChunks, ChunkFailure{
				Index:       index,
				InstanceIDs: chunk,
				Reason:      outcome.Reason,
			})
			continue
		}
		job.Delivered++
	}

	remaining := job.Remaining()
	if remaining > 0 {
		e.track(ctx, job, StatusRunning)
	}

	if !e.HandleChunksRemaining(ctx, job) {
		reason := fmt.Sprintf("could not hand off %d remaining chunk(s)", remaining)
		e.log.Printf("Job %s aborted: %s", job.ID, reason)
		aud.LogOperation("abort", e.cfg.FunctionName, audit.ResultFailed, errors.New(reason))
		e.metrics.Completion("aborted")
		e.track(ctx, job, StatusAborted)
		e.completer.Abort(ctx, job, reason)
		return false
	}

	if remaining > 0 {
		return true
	}

	status, result := StatusCompleted, "success"
	if !job.Succeeded() {
		status, result = StatusFailed, "failure"
	}
	e.log.Printf("Job %s finished: %d delivered, %d failed of %d chunk(s)", job.ID, job.Delivered, len(job.FailedChunks), job.TotalChunks)
	e.track(ctx, job, status)
	e.metrics.Completion(result)
	reported := e.completer.Complete(ctx, job)
	aud.LogOperationWithData("complete", job.PipelineJobID, result, map[string]interface{}{
		"delivered": job.Delivered,
		"failed":    len(job.FailedChunks),
		"reported":  reported,
	}, nil)
	return true
}

// DispatchChunk sends one Run Command request covering exactly chunk.
// Throttled requests are retried for the same chunk with capped exponential
// backoff until they succeed, the policy is exhausted (Failed) or the next
// wait would cross the invocation deadline (Deferred). Other errors fail the
// chunk immediately. Attempts continue from job.HeadAttempts, so the policy
// bounds a chunk across every invocation that retries it.
func (e *Engine) DispatchChunk(ctx context.Context, job *Job, index int, chunk []string) Outcome {
	input := e.commandInput(job, index, chunk)

	for attempt := job.HeadAttempts + 1; ; attempt++ {
		out, err := e.sendCommand(ctx, input)
		if err == nil {
			commandID := ""
			if out.Command != nil && out.Command.CommandId != nil {
				commandID = *out.Command.CommandId
			}
			e.log.Printf("RunCommand sent for chunk %d (%d instances) command=%s", index, len(chunk), commandID)
			return Outcome{Status: Delivered, CommandID: commandID, Attempts: attempt}
		}

		if !IsThrottling(err) {
			e.log.Printf("Run Command Failed for chunk %d: %v", index, err)
			return Outcome{Status: Failed, Reason: err.Error(), Attempts: attempt}
		}

		if e.cfg.Throttle.Exhausted(attempt) {
			e.log.Printf("Run Command for chunk %d still throttled after %d attempts", index, attempt)
			return Outcome{
				Status:   Failed,
				Reason:   fmt.Sprintf("throttled after %d attempts: %v", attempt, err),
				Attempts: attempt,
			}
		}

		delay := e.cfg.Throttle.Delay(attempt, e.rand)
		if !e.hasTime(ctx, delay) {
			// Spend what the budget allows of the backoff so the next
			// invocation does not retry straight away.
			if wait := e.spare(ctx); wait > 0 {
				if wait > delay {
					wait = delay
				}
				_ = e.sleep(ctx, wait)
			}
			e.log.Printf("RunCommand throttled for chunk %d, deferring to next invocation (attempt %d)", index, attempt)
			return Outcome{Status: Deferred, Reason: err.Error(), Attempts: attempt}
		}

		e.metrics.Throttled()
		e.log.Printf("RunCommand throttled for chunk %d, retrying in %v (attempt %d)", index, delay, attempt)
		if err := e.sleep(ctx, delay); err != nil {
			return Outcome{Status: Deferred, Reason: err.Error(), Attempts: attempt}
		}
	}
}

// HandleChunksRemaining hands the job to a new invocation when chunks remain.
// With nothing left it returns true without calling Lambda. Transient Invoke
// errors are retried under the handoff policy; the handoff succeeds only when
// Lambda answers 202 Accepted.
func (e *Engine) HandleChunksRemaining(ctx context.Context, job *Job) bool {
	if job.Remaining() == 0 {
		e.log.Printf("No more chunks of instances to process")
		return true
	}

	payload, err := json.Marshal(job)
	if err != nil {
		e.log.Printf("Failed to encode handoff payload: %v", err)
		return false
	}

	aud := e.audit.WithJob(job.ID)
	input := &lambda.InvokeInput{
		FunctionName:   aws.String(e.cfg.FunctionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	}

	for attempt := 1; ; attempt++ {
		out, err := e.invoke(ctx, input)
		if err == nil {
			if out.StatusCode == http.StatusAccepted {
				e.log.Printf("Invoked %s to continue with %d chunk(s)", e.cfg.FunctionName, job.Remaining())
				e.metrics.Handoff("accepted")
				aud.LogOperationWithData("handoff", e.cfg.FunctionName, audit.ResultSuccess, map[string]interface{}{
					"remaining": job.Remaining(),
					"step":      job.Step,
				}, nil)
				return true
			}

			functionError := ""
			if out.FunctionError != nil {
				functionError = *out.FunctionError
			}
			e.log.Printf("Handoff to %s not accepted: status=%d function_error=%q", e.cfg.FunctionName, out.StatusCode, functionError)
			e.metrics.Handoff("rejected")
			aud.LogOperation("handoff", e.cfg.FunctionName, audit.ResultFailed, fmt.Errorf("status %d", out.StatusCode))
			return false
		}

		if !IsTransient(err) || e.cfg.Handoff.Exhausted(attempt) {
			e.log.Printf("Failed to invoke %s after %d attempt(s): %v", e.cfg.FunctionName, attempt, err)
			e.metrics.Handoff("error")
			aud.LogOperation("handoff", e.cfg.FunctionName, audit.ResultFailed, err)
			return false
		}

		delay := e.cfg.Handoff.Delay(attempt, e.rand)
		e.log.Printf("Failed to invoke %s (attempt %d), retrying in %v: %v", e.cfg.FunctionName, attempt, delay, err)
		if err := e.sleep(ctx, delay); err != nil {
			e.metrics.Handoff("error")
			aud.LogOperation("handoff", e.cfg.FunctionName, audit.ResultFailed, err)
			return false
		}
	}
}

func (e *Engine) commandInput(job *Job, index int, chunk []string) *ssm.SendCommandInput {
	input := &ssm.SendCommandInput{
		InstanceIds:  chunk,
		DocumentName: aws.String(e.cfg.DocumentName),
		Comment:      aws.String(comment(job.ID, index, job.TotalChunks)),
		Parameters: map[string][]string{
			"commands":         job.Commands,
			"executionTimeout": {fmt.Sprintf("%d", int(e.cfg.ExecutionTimeout.Seconds()))},
		},
	}
	if e.cfg.OutputS3Bucket != "" {
		input.OutputS3BucketName = aws.String(e.cfg.OutputS3Bucket)
		if e.cfg.OutputS3Prefix != "" {
			input.OutputS3KeyPrefix = aws.String(e.cfg.OutputS3Prefix)
		}
	}
	return input
}

func (e *Engine) sendCommand(ctx context.Context, input *ssm.SendCommandInput) (*ssm.SendCommandOutput, error) {
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}
	return e.ssm.SendCommand(ctx, input)
}

func (e *Engine) invoke(ctx context.Context, input *lambda.InvokeInput) (*lambda.InvokeOutput, error) {
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}
	return e.lambda.Invoke(ctx, input)
}

// withMargin fixes the safety margin for one invocation. A margin at or above
// the time left would leave no budget at all, so it is cut to half of it.
func (e *Engine) withMargin(ctx context.Context, jobID string) context.Context {
	margin := e.cfg.SafetyMargin
	if deadline, ok := ctx.Deadline(); ok {
		if left := deadline.Sub(e.now()); left <= margin {
			margin = left / 2
			e.log.Printf("Job %s: only %v left, safety margin %v reduced to %v", jobID, left, e.cfg.SafetyMargin, margin)
		}
	}
	return context.WithValue(ctx, marginKey{}, margin)
}

func (e *Engine) margin(ctx context.Context) time.Duration {
	if m, ok := ctx.Value(marginKey{}).(time.Duration); ok {
		return m
	}
	return e.cfg.SafetyMargin
}

// spare returns the time left before the margin. Contexts without a deadline
// have none to spare.
func (e *Engine) spare(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return deadline.Sub(e.now()) - e.margin(ctx)
}

// hasTime reports whether waiting d still leaves the safety margin before the
// context deadline. Contexts without a deadline always have time.
func (e *Engine) hasTime(ctx context.Context, d time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return deadline.Sub(e.now())-d > e.margin(ctx)
}

func (e *Engine) track(ctx context.Context, job *Job, status string) {
	if e.tracker != nil {
		e.tracker.Track(ctx, job, status)
	}
}

func resultFor(s Status) string {
	switch s {
	case Delivered:
		return audit.ResultSuccess
	case Deferred:
		return audit.ResultDeferred
	default:
		return audit.ResultFailed
	}
}

func comment(jobID string, index, total int) string {
	c := fmt.Sprintf("garlc job %s chunk %d/%d", jobID, index+1, total)
	if len(c) > maxCommentLength {
		c = c[:maxCommentLength]
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LogCompleter only logs. It serves jobs with nobody to report to.
type LogCompleter struct {
	Logger *log.Logger
}

func (c LogCompleter) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}

// Complete logs the job's result.
func (c LogCompleter) Complete(ctx context.Context, job *Job) bool {
	if job.Succeeded() {
		c.logger().Printf("===SUCCESS=== job %s", job.ID)
	} else {
		c.logger().Printf("===FAILURE=== job %s: %d chunk(s) failed", job.ID, len(job.FailedChunks))
	}
	return true
}

// Abort logs the abandoned job.
func (c LogCompleter) Abort(ctx context.Context, job *Job, reason string) {
	c.logger().Printf("===FAILURE=== job %s aborted: %s", job.ID, reason)
}
