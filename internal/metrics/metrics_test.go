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

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.LocalMutation("status")
	m.LocalMutation("status")
	m.RemotePush("cell", nil, 10*time.Millisecond)
	m.RemotePush("meta", errors.New("down"), time.Millisecond)
	m.RemoteChange("cell", OutcomeDiscarded)
	m.Coalesced()
	m.CacheSaveError("meta")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LocalMutations.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemotePushes.WithLabelValues("cell", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemotePushes.WithLabelValues("meta", ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteChanges.WithLabelValues("cell", OutcomeDiscarded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DebounceCoalesced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheSaveErrors.WithLabelValues("meta")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "tablero_remote_pushes_total")
	assert.Contains(t, names, "tablero_remote_push_duration_seconds")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LocalMutation("status")
		m.RemotePush("cell", nil, 0)
		m.RemoteChange("meta", OutcomeApplied)
		m.Coalesced()
		m.CacheSaveError("status")
	})
}
