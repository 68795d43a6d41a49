package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts item persistence and sync outcomes. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ItemsSaved    *prometheus.CounterVec
	FieldsFlushed *prometheus.CounterVec
	ItemsLoaded   *prometheus.CounterVec
	SyncOutcomes  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ewscal_items_saved_total",
			Help: "Items written to a calendar backend by operation",
		}, []string{"backend", "op"}), // op: "create", "update"

		FieldsFlushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ewscal_dirty_fields_flushed_total",
			Help: "Dirty fields sent to a calendar backend",
		}, []string{"backend"}),

		ItemsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ewscal_items_loaded_total",
			Help: "Items hydrated from a calendar backend",
		}, []string{"backend"}),

		SyncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ewscal_sync_events_total",
			Help: "Sync results per source event",
		}, []string{"outcome"}), // outcome: "created", "updated", "unchanged", "failed"
	}
	reg.MustRegister(m.ItemsSaved, m.FieldsFlushed, m.ItemsLoaded, m.SyncOutcomes)
	return m
}

// IncSaved records one write and the number of dirty fields it carried.
func (m *Metrics) IncSaved(backend, op string, dirty int) {
	if m != nil {
		m.ItemsSaved.WithLabelValues(backend, op).Inc()
		m.FieldsFlushed.WithLabelValues(backend).Add(float64(dirty))
	}
}

// IncLoaded records items hydrated from backend.
func (m *Metrics) IncLoaded(backend string, n int) {
	if m != nil {
		m.ItemsLoaded.WithLabelValues(backend).Add(float64(n))
	}
}

// IncSync records the outcome of syncing one event.
func (m *Metrics) IncSync(outcome string) {
	if m != nil {
		m.SyncOutcomes.WithLabelValues(outcome).Inc()
	}
}
