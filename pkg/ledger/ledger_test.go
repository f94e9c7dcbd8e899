package ledger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/irlrobot/garlc/pkg/audit"
	"github.com/irlrobot/garlc/pkg/aws/mock"
	"github.com/irlrobot/garlc/pkg/dispatch"
	"github.com/irlrobot/garlc/pkg/lifecycle"
)

func newTestStore(client *mock.MockDynamoDBClient) (*DynamoStore, *[]time.Duration) {
	s := NewDynamoStore(client, "garlc-jobs", log.New(io.Discard, "", 0))
	s.now = func() time.Time { return time.Date(2016, 3, 18, 19, 20, 29, 0, time.UTC) }
	var pauses []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	return s, &pauses
}

func TestSaveAndGet(t *testing.T) {
	client := mock.NewMockDynamoDBClient(KeyName)
	s, _ := newTestStore(client)

	job := dispatch.NewJob("job-1", [][]string{{"i-1"}, {"i-2"}, {"i-3"}}, []string{"echo"})
	job.PipelineJobID = "cp-1"
	job.ChunkedInstanceIDs = job.ChunkedInstanceIDs[1:]
	job.Delivered = 1
	job.Step = 1

	if err := s.Save(context.Background(), FromJob(job, dispatch.StatusRunning)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := Record{
		JobID:         "job-1",
		PipelineJobID: "cp-1",
		TotalChunks:   3,
		Remaining:     2,
		Delivered:     1,
		Step:          1,
		Status:        dispatch.StatusRunning,
		UpdatedAt:     "2016-03-18T19:20:29Z",
	}
	if *got != want {
		t.Errorf("Get() = %+v, want %+v", *got, want)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(mock.NewMockDynamoDBClient(KeyName))
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSaveRetries(t *testing.T) {
	tests := []struct {
		name       string
		errs       []error
		wantErr    bool
		wantCalls  int
		wantPauses []time.Duration
	}{
		{name: "first try", wantCalls: 1},
		{name: "recovers", errs: []error{mock.ErrBoom, nil}, wantCalls: 2, wantPauses: []time.Duration{time.Second}},
		{name: "gives up", errs: []error{mock.ErrBoom, mock.ErrBoom, mock.ErrBoom}, wantErr: true, wantCalls: 3, wantPauses: []time.Duration{time.Second, 2 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mock.NewMockDynamoDBClient(KeyName)
			client.PutItemErrs = tt.errs
			s, pauses := newTestStore(client)

			err := s.Save(context.Background(), Record{JobID: "job-1"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Save() error = %v, wantErr %v", err, tt.wantErr)
			}
			if client.PutItemCalls != tt.wantCalls {
				t.Errorf("PutItem calls = %d, want %d", client.PutItemCalls, tt.wantCalls)
			}
			if len(*pauses) != len(tt.wantPauses) {
				t.Fatalf("pauses = %v, want %v", *pauses, tt.wantPauses)
			}
			for i := range tt.wantPauses {
				if (*pauses)[i] != tt.wantPauses[i] {
					t.Errorf("pause %d = %v, want %v", i, (*pauses)[i], tt.wantPauses[i])
				}
			}
		})
	}
}

func TestSaveStopsWhenContextEnds(t *testing.T) {
	client := mock.NewMockDynamoDBClient(KeyName)
	client.PutItemErr = mock.ErrBoom
	s := NewDynamoStore(client, "garlc-jobs", log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := s.Save(ctx, Record{JobID: "job-1"})
	if !errors.Is(err, mock.ErrBoom) {
		t.Fatalf("Save() error = %v, want the write error", err)
	}
	if client.PutItemCalls != 1 {
		t.Errorf("PutItem calls = %d, want 1", client.PutItemCalls)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Save() paused %v on a cancelled context", elapsed)
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(nil, "", nil).(NopStore); !ok {
		t.Error("New() with no table should return NopStore")
	}
	if _, ok := New(mock.NewMockDynamoDBClient(KeyName), "garlc-jobs", nil).(*DynamoStore); !ok {
		t.Error("New() with a table should return *DynamoStore")
	}
}

func TestTrackerSwallowsErrors(t *testing.T) {
	client := mock.NewMockDynamoDBClient(KeyName)
	client.PutItemErr = mock.ErrBoom
	s, _ := newTestStore(client)
	tr := NewTracker(s, log.New(io.Discard, "", 0))

	job := dispatch.NewJob("job-1", [][]string{{"i-1"}}, []string{"echo"})
	job.Lifecycle = &lifecycle.Action{InstanceID: "i-1"}
	tr.Track(context.Background(), job, dispatch.StatusRunning)

	if client.PutItemCalls != saveAttempts {
		t.Errorf("PutItem calls = %d, want %d", client.PutItemCalls, saveAttempts)
	}
}

func TestTrackerUsesContextJob(t *testing.T) {
	client := mock.NewMockDynamoDBClient(KeyName)
	s, _ := newTestStore(client)
	tr := NewTracker(s, log.New(io.Discard, "", 0))

	buf := &bytes.Buffer{}
	ctx := audit.ContextWithJobID(context.Background(), "corr-1")
	ctx = audit.ContextWithLogger(ctx, audit.NewLogger(buf, "test", "corr-1"))

	tr.Track(ctx, dispatch.NewJob("", [][]string{{"i-1"}}, []string{"echo"}), dispatch.StatusRunning)
	if _, err := s.Get(context.Background(), "corr-1"); err != nil {
		t.Errorf("record not stored under context job id: %v", err)
	}

	client.PutItemErr = mock.ErrBoom
	tr.Track(ctx, dispatch.NewJob("job-2", [][]string{{"i-1"}}, []string{"echo"}), dispatch.StatusFailed)
	if out := buf.String(); !strings.Contains(out, `"operation":"track"`) || !strings.Contains(out, `"result":"failed"`) {
		t.Errorf("failed save not audited: %s", out)
	}
}

func TestFromJobLifecycle(t *testing.T) {
	job := dispatch.NewJob("job-1", [][]string{{"i-9"}}, []string{"echo"})
	job.Lifecycle = &lifecycle.Action{InstanceID: "i-9"}
	job.FailedChunks = []dispatch.ChunkFailure{{Index: 0}}

	r := FromJob(job, dispatch.StatusFailed)
	if r.InstanceID != "i-9" || r.Failed != 1 || r.Status != dispatch.StatusFailed {
		t.Errorf("FromJob() = %+v", r)
	}
}
