package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-finance-api/internal/finance"
)

// MetricsSnapshot is a lightweight view of the collected counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CommitsSucceeded         uint64    `json:"commits_succeeded"`
	CommitsPartial           uint64    `json:"commits_partial"`
	Compensations            uint64    `json:"compensations"`
	CompensationFailures     uint64    `json:"compensation_failures"`
	LedgerCalls              uint64    `json:"ledger_calls"`
	AverageLedgerDurationMs  float64   `json:"average_ledger_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	ledgerDuration   *prometheus.HistogramVec
	commitItems      *prometheus.CounterVec
	commitBatches    *prometheus.CounterVec
	snapshotDuration prometheus.Observer

	requestCount         uint64
	requestDurationTotal uint64
	ledgerCount          uint64
	ledgerDurationTotal  uint64
	commitsSucceeded     uint64
	commitsPartial       uint64
	compensations        uint64
	compensationFailures uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	ledgerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_request_duration_seconds",
		Help:    "Duration of ledger backend calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	commitItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_commit_items_total",
		Help: "Installment commits by final state",
	}, []string{"state"})

	commitBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_commit_batches_total",
		Help: "Payment batches by outcome",
	}, []string{"outcome"})

	snapshotDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "finance_snapshot_load_seconds",
		Help:    "Duration of finance snapshot loads",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, ledgerDuration, commitItems, commitBatches, snapshotDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		ledgerDuration:   ledgerDuration,
		commitItems:      commitItems,
		commitBatches:    commitBatches,
		snapshotDuration: snapshotDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveLedgerCall records the latency of one ledger backend call.
func (m *MetricsService) ObserveLedgerCall(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ledgerDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
	atomic.AddUint64(&m.ledgerCount, 1)
	atomic.AddUint64(&m.ledgerDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveSnapshotLoad records how long the finance snapshot took to read.
func (m *MetricsService) ObserveSnapshotLoad(duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotDuration.Observe(duration.Seconds())
}

// RecordCommitItem counts one installment reaching a terminal commit state.
func (m *MetricsService) RecordCommitItem(state finance.CommitState) {
	if m == nil {
		return
	}
	m.commitItems.WithLabelValues(string(state)).Inc()
	if state == finance.CommitCompensated {
		atomic.AddUint64(&m.compensations, 1)
	}
}

// RecordCompensationFailure counts a transaction whose compensating delete failed.
func (m *MetricsService) RecordCompensationFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.compensationFailures, 1)
}

// RecordCommitBatch counts a finished batch.
func (m *MetricsService) RecordCommitBatch(success bool) {
	if m == nil {
		return
	}
	if success {
		m.commitBatches.WithLabelValues("success").Inc()
		atomic.AddUint64(&m.commitsSucceeded, 1)
		return
	}
	m.commitBatches.WithLabelValues("partial").Inc()
	atomic.AddUint64(&m.commitsPartial, 1)
}

// Snapshot returns aggregated metrics.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	ledgerCalls := atomic.LoadUint64(&m.ledgerCount)
	ledgerDuration := atomic.LoadUint64(&m.ledgerDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgLedgerMs float64
	if ledgerCalls > 0 {
		avgLedgerMs = float64(ledgerDuration) / float64(ledgerCalls) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CommitsSucceeded:         atomic.LoadUint64(&m.commitsSucceeded),
		CommitsPartial:           atomic.LoadUint64(&m.commitsPartial),
		Compensations:            atomic.LoadUint64(&m.compensations),
		CompensationFailures:     atomic.LoadUint64(&m.compensationFailures),
		LedgerCalls:              ledgerCalls,
		AverageLedgerDurationMs:  avgLedgerMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
