// Package telemetry holds the pipeline's Prometheus collectors. New
// registers them with the default registry, which each service's admin
// /metrics endpoint serves; no service binary calls New, so these
// collectors do not appear there.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector shared across the pipeline's
// services. Each service only touches the subset relevant to it; unused
// label values simply never get recorded.
type Metrics struct {
	// BusEventsPublished counts Publish calls per topic.
	BusEventsPublished *prometheus.CounterVec
	// BusEventsDropped counts subscriber-queue overflow drops per topic.
	BusEventsDropped *prometheus.CounterVec

	// EpisodesIngested counts EpisodicVault writes by outcome.
	EpisodesIngested *prometheus.CounterVec

	// AnnealEnergyDelta observes the energy change of each Gibbs sweep.
	AnnealEnergyDelta *prometheus.HistogramVec
	// ConsolidationDuration observes full wake-sleep cycle wall time.
	ConsolidationDuration *prometheus.HistogramVec
	// ConsolidationsTotal counts cycles by outcome (committed, aborted).
	ConsolidationsTotal *prometheus.CounterVec

	// EdgesPruned counts edges zeroed by SparsePruner, by trigger.
	EdgesPruned *prometheus.CounterVec
	// PruneQualityImpact observes the estimated quality cost of a prune.
	PruneQualityImpact *prometheus.HistogramVec

	// SpectralModesActive gauges the current KoopmanLearner mode count.
	SpectralModesActive prometheus.Gauge
	// RefreshFailuresTotal counts DMD refresh failures.
	RefreshFailuresTotal *prometheus.CounterVec

	// OscillatorDeliveries counts coupling.update deliveries by outcome.
	OscillatorDeliveries *prometheus.CounterVec

	// ServiceDegraded gauges whether a service has set its Degraded flag.
	ServiceDegraded *prometheus.GaugeVec
}

// New creates and registers every collector. Call once per process.
func New() *Metrics {
	return &Metrics{
		BusEventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tori_bus_events_published_total",
				Help: "Total events published to the event bus, by topic.",
			},
			[]string{"topic"},
		),
		BusEventsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tori_bus_events_dropped_total",
				Help: "Total events dropped on subscriber queue overflow, by topic.",
			},
			[]string{"topic"},
		),
		EpisodesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tori_vault_episodes_ingested_total",
				Help: "Total episodes accepted or rejected by EpisodicVault.",
			},
			[]string{"outcome"}, // accepted, rejected, duplicate
		),
		AnnealEnergyDelta: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tori_scheduler_anneal_energy_delta",
				Help:    "Energy change per Gibbs sweep during annealed consolidation.",
				Buckets: prometheus.LinearBuckets(-1, 0.1, 21),
			},
			[]string{},
		),
		ConsolidationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tori_scheduler_consolidation_duration_seconds",
				Help:    "Wall time of a full wake-sleep consolidation cycle.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{},
		),
		ConsolidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tori_scheduler_consolidations_total",
				Help: "Total consolidation cycles, by outcome.",
			},
			[]string{"outcome"}, // committed, aborted
		),
		EdgesPruned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tori_pruner_edges_pruned_total",
				Help: "Total edges zeroed by SparsePruner, by trigger.",
			},
			[]string{"trigger"}, // scheduled, event, manual
		),
		PruneQualityImpact: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tori_pruner_quality_impact",
				Help:    "Estimated quality impact of each committed prune.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{},
		),
		SpectralModesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tori_koopman_spectral_modes_active",
				Help: "Current number of retained spectral modes.",
			},
		),
		RefreshFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tori_koopman_refresh_failures_total",
				Help: "Total DMD refresh failures.",
			},
			[]string{},
		),
		OscillatorDeliveries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tori_oscillator_deliveries_total",
				Help: "Total coupling.update deliveries to the oscillator substrate, by outcome.",
			},
			[]string{"outcome"}, // delivered, dropped
		),
		ServiceDegraded: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tori_service_degraded",
				Help: "1 if the named service has set its Degraded flag, else 0.",
			},
			[]string{"service"},
		),
	}
}

// SetDegraded records a service's Degraded flag as a 0/1 gauge.
func (m *Metrics) SetDegraded(service string, degraded bool) {
	v := 0.0
	if degraded {
		v = 1.0
	}
	m.ServiceDegraded.WithLabelValues(service).Set(v)
}
