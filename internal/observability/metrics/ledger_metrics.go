package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonNotFound             = "not_found"
	ReasonUnknown              = "unknown"
)

const (
	RejectInsufficientStock = "insufficient_stock"
	RejectConcurrentUpdate  = "concurrent_update"
	RejectInvalidTransition = "invalid_transition"
	RejectItemHeld          = "item_held"
)

// LedgerMetrics tracks stock ledger health and reorder sweep throughput.
type LedgerMetrics struct {
	rejections    *prometheus.CounterVec
	failures      *prometheus.CounterVec
	sweepRuns     prometheus.Counter
	sweepDuration prometheus.Observer
	sweepCreated  prometheus.Counter
	sweepScanned  prometheus.Counter
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// Ledger returns the singleton ledger metrics registry using config labels.
func Ledger(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = newLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

func newLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stockwise_ledger_rejections_total",
		Help:        "Stock operations rejected by business rules.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stockwise_ledger_failures_total",
		Help:        "Stock operations that failed on storage errors, by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "stockwise_reorder_sweep_runs_total",
		Help:        "Reorder sweeps executed.",
		ConstLabels: constLabels,
	})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "stockwise_reorder_sweep_duration_seconds",
		Help:        "Reorder sweep latency.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	})
	sweepCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "stockwise_reorder_sweep_created_total",
		Help:        "Reorder requests created by sweeps.",
		ConstLabels: constLabels,
	})
	sweepScanned := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "stockwise_reorder_sweep_scanned_total",
		Help:        "Low-stock items inspected by sweeps.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(rejections, failures, sweepRuns, sweepDuration, sweepCreated, sweepScanned)

	return &LedgerMetrics{
		rejections:    rejections,
		failures:      failures,
		sweepRuns:     sweepRuns,
		sweepDuration: sweepDuration,
		sweepCreated:  sweepCreated,
		sweepScanned:  sweepScanned,
	}
}

// IncRejection counts a business-rule rejection such as insufficient stock.
func (m *LedgerMetrics) IncRejection(operation, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(operation, reason).Inc()
}

// IncFailure counts a storage failure with classification.
func (m *LedgerMetrics) IncFailure(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(operation, ClassifyStorageError(err)).Inc()
}

// ObserveSweep records a completed reorder sweep.
func (m *LedgerMetrics) ObserveSweep(duration time.Duration, scanned, created int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepDuration.Observe(duration.Seconds())
	if scanned > 0 {
		m.sweepScanned.Add(float64(scanned))
	}
	if created > 0 {
		m.sweepCreated.Add(float64(created))
	}
}

// ClassifyStorageError maps driver errors to a bounded reason set.
func ClassifyStorageError(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ReasonUniqueViolation
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ReasonNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "55P03":
			return ReasonDBLockTimeout
		case "40001", "40P01":
			return ReasonSerializationFailure
		case "23505":
			return ReasonUniqueViolation
		}
	}
	return ReasonUnknown
}
