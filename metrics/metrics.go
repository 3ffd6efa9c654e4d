// Package metrics exposes Prometheus collectors for ledger activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skillbloom"

// Tx status label values.
const (
	StatusCommitted = "committed"
	StatusFailed    = "failed"
)

// Metrics groups the ledger collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	txTotal     *prometheus.CounterVec
	blocksTotal prometheus.Counter
	mempoolSize prometheus.Gauge
	blockTxs    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		txTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_total",
				Help:      "Transactions processed by type and outcome",
			},
			[]string{"type", "status"}, // committed, failed
		),
		blocksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Blocks committed since node start",
		}),
		mempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mempool_size",
			Help:      "Transactions waiting in the mempool",
		}),
		blockTxs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_txs",
			Help:      "Transactions included per committed block",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1 ~ 512
		}),
	}
	reg.MustRegister(m.txTotal, m.blocksTotal, m.mempoolSize, m.blockTxs)
	return m
}

// ObserveTx counts one processed transaction.
func (m *Metrics) ObserveTx(txType, status string) {
	if m == nil {
		return
	}
	m.txTotal.WithLabelValues(txType, status).Inc()
}

// ObserveBlock counts a committed block holding n transactions.
func (m *Metrics) ObserveBlock(n int) {
	if m == nil {
		return
	}
	m.blocksTotal.Inc()
	m.blockTxs.Observe(float64(n))
}

// SetMempoolSize records the current mempool depth.
func (m *Metrics) SetMempoolSize(n int) {
	if m == nil {
		return
	}
	m.mempoolSize.Set(float64(n))
}
