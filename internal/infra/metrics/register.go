package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues a collector at init time. Nothing touches the default
// Prometheus registry until MustRegister runs, which keeps tests that
// import this package from tripping duplicate-registration panics.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister installs every queued collector. main calls it once before
// the HTTP server exposes /metrics; repeat calls are no-ops.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}
