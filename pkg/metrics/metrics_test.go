package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("clinique", reg)

	m.AppointmentsCreated.Inc()
	m.SlotConflicts.WithLabelValues("create").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["clinique_appointments_created_total"])
	assert.True(t, names["clinique_appointments_slot_conflicts_total"])
}

func TestObserveDB(t *testing.T) {
	m := NewMetrics("clinique", nil)

	m.ObserveDB("appointments.create", time.Now(), nil)
	m.ObserveDB("appointments.create", time.Now(), errors.New("boom"))
	m.ObserveDB("appointments.create", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("appointments.create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("appointments.create", "error")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveDB("noop", time.Now(), nil) })
}
