// Package metrics registers the prometheus collectors of the blessings service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
)

// Gauge is a subset of a prometheus Gauge
type Gauge interface {
	Inc()
	Dec()
}

// HistogramVec is a subset of a prometheus HistogramVec
type HistogramVec interface {
	WithLabelValues(lvs ...string) prometheus.Observer
}

// NewRequestLatency creates a histogram observing HTTP request durations by
// method, route and status code.
func NewRequestLatency(conf config.Prometheus) *prometheus.HistogramVec {
	buckets := conf.RequestLatencyBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blessings",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   buckets,
		},
		[]string{"method", "route", "code"},
	)
}

// RegisterRequestLatency creates and registers a prometheus histogram
// to observe HTTP request durations
func RegisterRequestLatency(conf config.Prometheus) (HistogramVec, error) {
	requestLatency := NewRequestLatency(conf)
	return requestLatency, prometheus.Register(requestLatency)
}

// NewRequestsInFlight creates a gauge of the HTTP requests being served.
func NewRequestsInFlight() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blessings",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests being served.",
	})
}

// RegisterRequestsInFlight creates and registers a prometheus gauge to
// track the number of HTTP requests being served
func RegisterRequestsInFlight() (Gauge, error) {
	inFlight := NewRequestsInFlight()
	return inFlight, prometheus.Register(inFlight)
}

// RegisterCollector registers a collector such as datastore.CatalogStore.
func RegisterCollector(c prometheus.Collector) error {
	return prometheus.Register(c)
}
