package telemetry

import "github.com/prometheus/client_golang/prometheus"

// NewRegistry builds the daemon's metrics registry.
func NewRegistry(collectors ...prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ally_up",
		Help: "Always 1 while the exporter is running",
	}, func() float64 { return 1 }))

	for _, collector := range collectors {
		registry.MustRegister(collector)
	}

	return registry
}
