package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncSaved("icloud", "update", 3)
	m.IncSaved("icloud", "create", 0)
	m.IncLoaded("google", 4)
	m.IncSync("created")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsSaved.WithLabelValues("icloud", "update")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FieldsFlushed.WithLabelValues("icloud")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ItemsLoaded.WithLabelValues("google")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncOutcomes.WithLabelValues("created")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncSaved("icloud", "update", 1)
		m.IncLoaded("google", 1)
		m.IncSync("failed")
	})
}
