package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Item outcomes used as the outcome attribute
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ExportDurationBuckets are bucket boundaries for one item submission (seconds),
// retries and backoff included.
var ExportDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// ExportMetrics records logistics export activity
type ExportMetrics struct {
	logger *zap.Logger

	itemsTotal    *Counter
	attemptsTotal *Counter
	itemDuration  *Histogram
	runsTotal     *Counter
	runDuration   *Histogram
}

// ExportMetricsConfig holds configuration for export metrics.
type ExportMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewExportMetrics creates the export instruments on the given meter.
func NewExportMetrics(cfg ExportMetricsConfig) (*ExportMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	em := &ExportMetrics{logger: logger}
	var err error

	em.itemsTotal, err = NewCounter(cfg.Meter,
		"mp_ec_items_total",
		"Total number of items submitted to the logistics provider",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	em.attemptsTotal, err = NewCounter(cfg.Meter,
		"mp_ec_item_attempts_total",
		"Total number of HTTP attempts made for item submissions",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	em.itemDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "mp_ec_item_duration_seconds",
		Description: "Time spent submitting one item, retries included",
		Unit:        "s",
		Boundaries:  ExportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	em.runsTotal, err = NewCounter(cfg.Meter,
		"mp_ec_export_runs_total",
		"Total number of shop export runs by final status",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	em.runDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "mp_ec_export_run_duration_seconds",
		Description: "Duration of shop export runs",
		Unit:        "s",
		Boundaries:  ExportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return em, nil
}

// RecordItem records the final outcome of one item submission
func (em *ExportMetrics) RecordItem(ctx context.Context, success bool, attempts int, d time.Duration) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	em.itemsTotal.Inc(ctx, AttrOutcome.String(outcome))
	if attempts > 0 {
		em.attemptsTotal.Inc(ctx, AttrRetried.Bool(false))
	}
	if attempts > 1 {
		em.attemptsTotal.Add(ctx, int64(attempts-1), AttrRetried.Bool(true))
	}
	em.itemDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordRun records a finished shop export run
func (em *ExportMetrics) RecordRun(ctx context.Context, status string, d time.Duration) {
	em.runsTotal.Inc(ctx, AttrRunStatus.String(status))
	em.runDuration.RecordDuration(ctx, d, AttrRunStatus.String(status))
	em.logger.Debug("Export run recorded",
		zap.String("status", status),
		zap.Duration("duration", d),
	)
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewExportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Export attribute keys
var (
	AttrOutcome   = attribute.Key("outcome")
	AttrRetried   = attribute.Key("retried")
	AttrRunStatus = attribute.Key("status")
)
