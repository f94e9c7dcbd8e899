package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := NewRegistry()
	r, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	r.Chunk("delivered", 50)
	r.Chunk("delivered", 20)
	r.Chunk("failed", 50)
	r.Throttled()
	r.Throttled()
	r.Handoff("accepted")
	r.Completion("success")

	if got := testutil.ToFloat64(r.chunks.WithLabelValues("delivered")); got != 2 {
		t.Errorf("delivered chunks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.chunks.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed chunks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.instances); got != 70 {
		t.Errorf("instances = %v, want 70", got)
	}
	if got := testutil.ToFloat64(r.throttled); got != 2 {
		t.Errorf("throttle retries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.handoffs.WithLabelValues("accepted")); got != 1 {
		t.Errorf("handoffs = %v, want 1", got)
	}
}

func TestRecorderDoubleRegister(t *testing.T) {
	reg := NewRegistry()
	if _, err := NewRecorder(reg); err != nil {
		t.Fatalf("first NewRecorder() error = %v", err)
	}
	if _, err := NewRecorder(reg); err == nil {
		t.Error("second NewRecorder() on the same registry should fail")
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Chunk("delivered", 1)
	r.Throttled()
	r.Handoff("accepted")
	r.Completion("success")
}

func TestSnapshot(t *testing.T) {
	reg := NewRegistry()
	r, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	r.Chunk("delivered", 3)
	r.Handoff("accepted")

	samples, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	found := map[string]float64{}
	for _, s := range samples {
		found[s.Name] += s.Value
	}
	if found["garlc_chunks_total"] != 1 {
		t.Errorf("garlc_chunks_total = %v, want 1", found["garlc_chunks_total"])
	}
	if found["garlc_instances_delivered_total"] != 3 {
		t.Errorf("garlc_instances_delivered_total = %v, want 3", found["garlc_instances_delivered_total"])
	}
	for i := 1; i < len(samples); i++ {
		if samples[i-1].Name > samples[i].Name {
			t.Errorf("samples not sorted: %s before %s", samples[i-1].Name, samples[i].Name)
		}
	}
}
