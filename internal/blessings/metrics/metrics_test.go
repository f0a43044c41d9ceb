package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/blessings/internal/blessings/config"
)

func TestNewRequestLatency(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		conf    config.Prometheus
		buckets int
	}{
		{desc: "default buckets", conf: config.Prometheus{}, buckets: len(prometheus.DefBuckets)},
		{desc: "configured buckets", conf: config.Prometheus{RequestLatencyBuckets: []float64{0.1, 1}}, buckets: 2},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			latency := NewRequestLatency(tc.conf)
			latency.WithLabelValues("GET", "/v1/blessings", "200").Observe(0.05)

			registry := prometheus.NewPedanticRegistry()
			require.NoError(t, registry.Register(latency))

			families, err := registry.Gather()
			require.NoError(t, err)
			require.Len(t, families, 1)
			require.Equal(t, "blessings_http_request_duration_seconds", families[0].GetName())
			require.Len(t, families[0].GetMetric()[0].GetHistogram().GetBucket(), tc.buckets)
		})
	}
}

func TestNewRequestsInFlight(t *testing.T) {
	inFlight := NewRequestsInFlight()
	inFlight.Inc()
	inFlight.Inc()
	inFlight.Dec()

	require.Equal(t, float64(1), testutil.ToFloat64(inFlight))
}
