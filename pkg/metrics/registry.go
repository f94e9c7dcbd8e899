package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a Prometheus registry
type Registry struct {
	reg *prometheus.Registry
}

// NewRegistry creates a new Registry
func NewRegistry() *Registry {
	return &Registry{
		reg: prometheus.NewRegistry(),
	}
}

// Register registers a collector
func (r *Registry) Register(c prometheus.Collector) error {
	return r.reg.Register(c)
}

// Sample is one counter value flattened for printing.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers every counter in the registry, sorted by name.
func (r *Registry) Snapshot() ([]Sample, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			samples = append(samples, Sample{
				Name:   mf.GetName(),
				Labels: labels,
				Value:  m.GetCounter().GetValue(),
			})
		}
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}
