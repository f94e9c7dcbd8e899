// Package ledger keeps a per-job record of a dispatch chain's progress so an
// operator can follow a job across invocations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/irlrobot/garlc/pkg/audit"
	"github.com/irlrobot/garlc/pkg/dispatch"
)

// KeyName is the table's partition key.
const KeyName = "job_id"

const saveAttempts = 3

// ErrNotFound is returned by Get for unknown jobs.
var ErrNotFound = errors.New("job not found")

// Record is one job's latest known state.
type Record struct {
	JobID         string `dynamodbav:"job_id"`
	PipelineJobID string `dynamodbav:"pipeline_job_id,omitempty"`
	InstanceID    string `dynamodbav:"instance_id,omitempty"`
	TotalChunks   int    `dynamodbav:"total_chunks"`
	Remaining     int    `dynamodbav:"remaining"`
	Delivered     int    `dynamodbav:"delivered"`
	Failed        int    `dynamodbav:"failed"`
	Step          int    `dynamodbav:"step"`
	Status        string `dynamodbav:"status"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

// FromJob snapshots job with the given status.
func FromJob(job *dispatch.Job, status string) Record {
	r := Record{
		JobID:         job.ID,
		PipelineJobID: job.PipelineJobID,
		TotalChunks:   job.TotalChunks,
		Remaining:     job.Remaining(),
		Delivered:     job.Delivered,
		Failed:        len(job.FailedChunks),
		Step:          job.Step,
		Status:        status,
	}
	if job.Lifecycle != nil {
		r.InstanceID = job.Lifecycle.InstanceID
	}
	return r
}

// Store persists records.
type Store interface {
	Save(ctx context.Context, r Record) error
	Get(ctx context.Context, jobID string) (*Record, error)
}

// DynamoDBAPI is the subset of the DynamoDB client the ledger uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore keeps records in a DynamoDB table keyed by job_id.
type DynamoStore struct {
	client DynamoDBAPI
	table  string
	log    *log.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDynamoStore creates a store over table.
func NewDynamoStore(client DynamoDBAPI, table string, logger *log.Logger) *DynamoStore {
	if logger == nil {
		logger = log.Default()
	}
	return &DynamoStore{
		client: client,
		table:  table,
		log:    logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Save writes r, retrying failed writes with a linearly growing pause. A
// pause cut short by ctx ends the retries.
func (s *DynamoStore) Save(ctx context.Context, r Record) error {
	r.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	for retries := 0; retries < saveAttempts; retries++ {
		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      item,
		})
		if err == nil {
			return nil
		}
		s.log.Printf("DynamoDB write failed (attempt %d/%d): %v", retries+1, saveAttempts, err)
		if retries+1 < saveAttempts {
			if serr := s.sleep(ctx, time.Duration(retries+1)*time.Second); serr != nil {
				return fmt.Errorf("failed to save job %s: %w (gave up: %v)", r.JobID, err, serr)
			}
		}
	}

	return fmt.Errorf("failed to save job %s after %d attempts: %w", r.JobID, saveAttempts, err)
}

// Get loads the record for jobID.
func (s *DynamoStore) Get(ctx context.Context, jobID string) (*Record, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			KeyName: &types.AttributeValueMemberS{Value: jobID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get failed: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%s: %w", jobID, ErrNotFound)
	}

	var r Record
	if err := attributevalue.UnmarshalMap(result.Item, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &r, nil
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

// NopStore discards records. It is used when no table is configured.
type NopStore struct{}

func (NopStore) Save(ctx context.Context, r Record) error { return nil }

func (NopStore) Get(ctx context.Context, jobID string) (*Record, error) {
	return nil, fmt.Errorf("%s: %w (no jobs table configured)", jobID, ErrNotFound)
}

// New returns a DynamoStore for table, or a NopStore when table is empty.
func New(client DynamoDBAPI, table string, logger *log.Logger) Store {
	if table == "" {
		return NopStore{}
	}
	return NewDynamoStore(client, table, logger)
}

// Tracker records job progress in a Store. Save failures are logged and
// never reach the dispatcher.
type Tracker struct {
	store Store
	log   *log.Logger
}

// NewTracker creates a Tracker over store.
func NewTracker(store Store, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{store: store, log: logger}
}

// Track implements dispatch.Tracker. A job without an ID of its own is
// recorded under the correlation ID carried by ctx.
func (t *Tracker) Track(ctx context.Context, job *dispatch.Job, status string) {
	r := FromJob(job, status)
	if r.JobID == "" {
		r.JobID = audit.JobIDFromContext(ctx)
	}
	if r.JobID == "" {
		t.log.Printf("Not recording %s progress for a job without an ID", status)
		return
	}
	if err := t.store.Save(ctx, r); err != nil {
		t.log.Printf("Failed to record progress of job %s: %v", r.JobID, err)
		audit.LoggerFromContext(ctx).LogOperation("track", status, audit.ResultFailed, err)
	}
}
