package app

import (
	metricsPkg "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the metrics exposed by the engine.
type Metrics struct {
	// Height of the last committed block
	Height metricsPkg.Gauge
	// Transactions delivered successfully in the last block
	NumTxs metricsPkg.Gauge
	// Transactions that failed in the last block
	NumFailedTxs metricsPkg.Gauge
	// Time spent in Commit (ms)
	CommitTimeMs metricsPkg.Gauge
	// Transactions rejected by CheckTx
	CheckTxRejected metricsPkg.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "app",
			Name:      "height",
			Help:      "Height of the last committed block",
		}, []string{}),
		NumTxs: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "app",
			Name:      "num_txs",
			Help:      "Number of successful txs in the last block",
		}, []string{}),
		NumFailedTxs: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "app",
			Name:      "num_failed_txs",
			Help:      "Number of failed txs in the last block",
		}, []string{}),
		CommitTimeMs: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "app",
			Name:      "commit_time",
			Help:      "Time to commit a block (ms)",
		}, []string{}),
		CheckTxRejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "app",
			Name:      "check_tx_rejected",
			Help:      "Number of txs rejected by CheckTx",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:          discard.NewGauge(),
		NumTxs:          discard.NewGauge(),
		NumFailedTxs:    discard.NewGauge(),
		CommitTimeMs:    discard.NewGauge(),
		CheckTxRejected: discard.NewCounter(),
	}
}
