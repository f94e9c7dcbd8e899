package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "garlc"

// Recorder counts dispatch activity. A nil *Recorder records nothing.
type Recorder struct {
	chunks      *prometheus.CounterVec
	instances   prometheus.Counter
	throttled   prometheus.Counter
	handoffs    *prometheus.CounterVec
	completions *prometheus.CounterVec
}

// NewRecorder creates a Recorder and registers its collectors on reg.
func NewRecorder(reg *Registry) (*Recorder, error) {
	r := &Recorder{
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunks processed, by outcome.",
		}, []string{"outcome"}),
		instances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_delivered_total",
			Help:      "Instances included in accepted Run Command requests.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_retries_total",
			Help:      "SendCommand calls retried after a throttling error.",
		}),
		handoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Asynchronous handoffs to the next invocation, by result.",
		}, []string{"result"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Jobs finished, by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{r.chunks, r.instances, r.throttled, r.handoffs, r.completions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Chunk records a chunk outcome and, for delivered chunks, its instance count.
func (r *Recorder) Chunk(outcome string, instances int) {
	if r == nil {
		return
	}
	r.chunks.WithLabelValues(outcome).Inc()
	if outcome == "delivered" {
		r.instances.Add(float64(instances))
	}
}

// Throttled records one throttle retry.
func (r *Recorder) Throttled() {
	if r == nil {
		return
	}
	r.throttled.Inc()
}

// Handoff records a handoff attempt result.
func (r *Recorder) Handoff(result string) {
	if r == nil {
		return
	}
	r.handoffs.WithLabelValues(result).Inc()
}

// Completion records how a job finished.
func (r *Recorder) Completion(result string) {
	if r == nil {
		return
	}
	r.completions.WithLabelValues(result).Inc()
}

// InstancesDelivered exposes the delivered-instances counter for reporting.
func (r *Recorder) InstancesDelivered() prometheus.Counter {
	return r.instances
}
