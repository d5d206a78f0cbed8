package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewMetricsRegistry builds a Prometheus registry seeded with the standard
// process/Go runtime collectors plus every collector passed in.
func NewMetricsRegistry(collectors_ ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	for _, c := range collectors_ {
		reg.MustRegister(c)
	}
	return reg
}
