package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsSetDegraded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		ServiceDegraded: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_service_degraded"}, []string{"service"}),
	}
	reg.MustRegister(m.ServiceDegraded)

	m.SetDegraded("sparsepruner", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ServiceDegraded.WithLabelValues("sparsepruner")))

	m.SetDegraded("sparsepruner", false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ServiceDegraded.WithLabelValues("sparsepruner")))
}
