package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// DBMetrics records GORM statement latency and connection pool usage
type DBMetrics struct {
	queryDuration *Histogram
	queryErrors   *Counter
	registration  metric.Registration
}

// RegisterDBMetrics instruments db with query and pool metrics.
// A nil meter disables instrumentation and returns nil.
func RegisterDBMetrics(db *gorm.DB, meter metric.Meter) (*DBMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	queryErrors, err := NewCounter(meter, "db_query_errors_total", "Database statements that returned an error", "{query}")
	if err != nil {
		return nil, err
	}

	m := &DBMetrics{queryDuration: queryDuration, queryErrors: queryErrors}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for because the pool was exhausted"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, err
	}
	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(stats.MaxOpenConnections), metric.WithAttributes(AttrDBState.String("max")))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, connections, waits)
	if err != nil {
		return nil, err
	}

	if err := registerTimedCallbacks(db, "telemetry_metrics", m.record); err != nil {
		_ = m.registration.Unregister()
		return nil, err
	}
	return m, nil
}

func (m *DBMetrics) record(tx *gorm.DB, op string, elapsed time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(tx.Statement.Table)}
	m.queryDuration.RecordDuration(ctx, elapsed, attrs...)
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		m.queryErrors.Inc(ctx, attrs...)
	}
}

// Stop unregisters the pool callback
func (m *DBMetrics) Stop() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
