package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RollupMetrics records outcomes of the rollup worker pipeline.
type RollupMetrics struct {
	processed *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	failed    *prometheus.CounterVec
	applyTime prometheus.Histogram
	txRetries prometheus.Counter
}

// NewRollupMetrics registers the rollup metrics on the provided registerer.
func NewRollupMetrics(reg prometheus.Registerer) *RollupMetrics {
	if reg == nil {
		return &RollupMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollup_events_processed",
		Help: "Order events folded into a rollup document.",
	}, []string{"event_type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollup_events_skipped",
		Help: "Order events skipped before aggregation.",
	}, []string{"reason"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollup_events_failed",
		Help: "Order events that failed aggregation.",
	}, []string{"stage"})
	applyTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollup_apply_duration_seconds",
		Help:    "Duration of the rollup store transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	txRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rollup_tx_retries",
		Help: "Rollup transactions retried after a write conflict.",
	})
	reg.MustRegister(processed, skipped, failed, applyTime, txRetries)
	return &RollupMetrics{
		processed: processed,
		skipped:   skipped,
		failed:    failed,
		applyTime: applyTime,
		txRetries: txRetries,
	}
}

// IncProcessed increments the processed counter for the event type.
func (m *RollupMetrics) IncProcessed(eventType string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncSkipped increments the skipped counter for the given reason.
func (m *RollupMetrics) IncSkipped(reason string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncFailed increments the failure counter for the given stage.
func (m *RollupMetrics) IncFailed(stage string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveApply records the duration of one store transaction.
func (m *RollupMetrics) ObserveApply(duration time.Duration) {
	if m == nil || m.applyTime == nil {
		return
	}
	m.applyTime.Observe(duration.Seconds())
}

// IncTxRetry counts one transaction retry after a conflict.
func (m *RollupMetrics) IncTxRetry() {
	if m == nil || m.txRetries == nil {
		return
	}
	m.txRetries.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
