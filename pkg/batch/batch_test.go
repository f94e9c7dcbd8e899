package batch

import (
	"fmt"
	"reflect"
	"testing"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("i-%08d", i+1)
	}
	return ids
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		size      int
		wantSizes []int
	}{
		{name: "empty", count: 0, size: 50, wantSizes: []int{}},
		{name: "single partial chunk", count: 3, size: 250, wantSizes: []int{3}},
		{name: "exact multiple", count: 100, size: 50, wantSizes: []int{50, 50}},
		{name: "remainder", count: 120, size: 50, wantSizes: []int{50, 50, 20}},
		{name: "size one", count: 3, size: 1, wantSizes: []int{1, 1, 1}},
		{name: "zero size treated as one", count: 2, size: 0, wantSizes: []int{1, 1}},
		{name: "size larger than input", count: 7, size: 1000, wantSizes: []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := makeIDs(tt.count)
			chunks := Split(ids, tt.size)

			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("Split() returned %d chunks, want %d", len(chunks), len(tt.wantSizes))
			}
			for i, c := range chunks {
				if len(c) != tt.wantSizes[i] {
					t.Errorf("chunk %d has %d ids, want %d", i, len(c), tt.wantSizes[i])
				}
				if len(c) == 0 {
					t.Errorf("chunk %d is empty", i)
				}
			}
			if got := Flatten(chunks); !reflect.DeepEqual(got, ids) {
				t.Errorf("Flatten(Split()) = %v, want %v", got, ids)
			}
		})
	}
}

func TestSplitChunkCount(t *testing.T) {
	for count := 0; count <= 130; count++ {
		for _, size := range []int{1, 7, 50, 250} {
			chunks := Split(makeIDs(count), size)
			want := (count + size - 1) / size
			if len(chunks) != want {
				t.Errorf("Split(%d ids, %d) = %d chunks, want %d", count, size, len(chunks), want)
			}
			for _, c := range chunks {
				if len(c) > size {
					t.Errorf("Split(%d ids, %d) produced chunk of %d", count, size, len(c))
				}
			}
		}
	}
}

func TestSplitCopiesInput(t *testing.T) {
	ids := []string{"i-1", "i-2", "i-3"}
	chunks := Split(ids, 2)
	ids[0] = "i-changed"

	if chunks[0][0] != "i-1" {
		t.Errorf("chunk aliases input: got %s, want i-1", chunks[0][0])
	}
}
