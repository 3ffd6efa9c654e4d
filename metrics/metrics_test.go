package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTx("unlock_skill", StatusCommitted)
	m.ObserveTx("unlock_skill", StatusCommitted)
	m.ObserveTx("unlock_skill", StatusFailed)
	m.ObserveBlock(2)
	m.SetMempoolSize(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.txTotal.WithLabelValues("unlock_skill", StatusCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txTotal.WithLabelValues("unlock_skill", StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blocksTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.mempoolSize))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "skillbloom_tx_total")
	assert.Contains(t, names, "skillbloom_blocks_total")
	assert.Contains(t, names, "skillbloom_mempool_size")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTx("transfer", StatusCommitted)
		m.ObserveBlock(1)
		m.SetMempoolSize(1)
	})
}
