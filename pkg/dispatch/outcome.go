package dispatch

// Status classifies a chunk's dispatch result.
type Status int

const (
	// Delivered means Run Command accepted the request.
	Delivered Status = iota
	// Failed means the request was rejected; the chunk is not retried.
	Failed
	// Deferred means throttle retries would outlast the invocation. The chunk
	// goes back to the head of the queue for the next invocation.
	Deferred
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Outcome is the result of dispatching one chunk.
type Outcome struct {
	Status    Status
	Reason    string
	CommandID string
	Attempts  int
}
