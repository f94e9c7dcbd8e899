package batch

// DefaultSize is the number of instances sent in one Run Command request.
// SendCommand accepts at most 50 instance IDs per call.
const DefaultSize = 50

// Split partitions ids into successive chunks of at most size elements.
// Order is preserved and the last chunk may be shorter. An empty input
// yields no chunks. A size below 1 is treated as 1.
func Split(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	if len(ids) == 0 {
		return [][]string{}
	}

	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunk := make([]string, end-start)
		copy(chunk, ids[start:end])
		chunks = append(chunks, chunk)
	}

	return chunks
}

// Flatten concatenates chunks back into a single ordered list.
func Flatten(chunks [][]string) []string {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	ids := make([]string, 0, n)
	for _, c := range chunks {
		ids = append(ids, c...)
	}
	return ids
}
