package cmd

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/irlrobot/garlc/pkg/config"
	"github.com/irlrobot/garlc/pkg/ledger"
	"github.com/irlrobot/garlc/pkg/metrics"
)

func TestReadIDs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lines", "i-1\ni-2\n", []string{"i-1", "i-2"}},
		{"mixed whitespace", "i-1 i-2\n\n\ti-3  \n", []string{"i-1", "i-2", "i-3"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readIDs(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("readIDs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("readIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitCommand(t *testing.T) {
	cfg = config.Default()
	cfg.ChunkSize = 2
	noColor = true

	out := &bytes.Buffer{}
	splitCmd.SetOut(out)
	splitCmd.SetIn(strings.NewReader("i-1\ni-2\ni-3\n"))

	if err := runSplit(splitCmd, nil); err != nil {
		t.Fatalf("runSplit() error = %v", err)
	}
	if !strings.Contains(out.String(), "3 instance(s) in 2 chunk(s)") {
		t.Errorf("output missing summary:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "i-3") {
		t.Errorf("output missing last chunk:\n%s", out.String())
	}
}

func TestSplitCommandNoInput(t *testing.T) {
	cfg = config.Default()
	splitCmd.SetIn(strings.NewReader(""))
	if err := runSplit(splitCmd, nil); err == nil {
		t.Error("runSplit() error = nil with no instance IDs")
	}
}

func TestPrintRecord(t *testing.T) {
	out := &bytes.Buffer{}
	newPrinter(out, false).record(&ledger.Record{
		JobID:         "job-1",
		PipelineJobID: "cp-1",
		TotalChunks:   3,
		Remaining:     1,
		Delivered:     2,
		Step:          2,
		Status:        "RUNNING",
	})

	for _, want := range []string{"job-1", "RUNNING", "cp-1", "Remaining"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("record output missing %q:\n%s", want, out.String())
		}
	}
}

func TestStatusColor(t *testing.T) {
	if got := newPrinter(nil, false).status("FAILED"); got != "FAILED" {
		t.Errorf("status() without color = %q", got)
	}
}

func TestFormatLabels(t *testing.T) {
	got := formatLabels(map[string]string{"result": "accepted", "a": "b"})
	if got != "a=b,result=accepted" {
		t.Errorf("formatLabels() = %q", got)
	}
}

func TestPrintMetrics(t *testing.T) {
	out := &bytes.Buffer{}
	newPrinter(out, false).metrics([]metrics.Sample{
		{Name: "garlc_chunks_total", Labels: map[string]string{"outcome": "delivered"}, Value: 2},
	})
	if !strings.Contains(out.String(), "garlc_chunks_total") || !strings.Contains(out.String(), "outcome=delivered") {
		t.Errorf("metrics output:\n%s", out.String())
	}
}
