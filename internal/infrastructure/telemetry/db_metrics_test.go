package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/merchportal/backend/internal/infrastructure/telemetry"
)

type sampleRow struct {
	ID   uint
	Name string
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&sampleRow{}))
	return db
}

func TestRegisterDBMetrics(t *testing.T) {
	db := openSQLite(t)
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	m, err := telemetry.RegisterDBMetrics(db, meter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&sampleRow{Name: "a"}).Error)
	var rows []sampleRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	require.Error(t, db.WithContext(ctx).Table("missing_table").Find(&rows).Error)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			found[metric.Name] = true
			switch data := metric.Data.(type) {
			case metricdata.Histogram[float64]:
				var count uint64
				for _, dp := range data.DataPoints {
					count += dp.Count
				}
				assert.GreaterOrEqual(t, count, uint64(3))
			case metricdata.Sum[int64]:
				if metric.Name == "db_query_errors_total" {
					require.Len(t, data.DataPoints, 1)
					assert.Equal(t, int64(1), data.DataPoints[0].Value)
				}
			}
		}
	}
	assert.True(t, found["db_query_duration_seconds"])
	assert.True(t, found["db_query_errors_total"])
	assert.True(t, found["db_pool_connections"])
}

func TestRegisterDBMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.RegisterDBMetrics(openSQLite(t), nil)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, m.Stop())
}

func TestRegisterDBTracing_LogsSlowQueries(t *testing.T) {
	db := openSQLite(t)
	core, logs := observer.New(zapcore.WarnLevel)

	err := telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{
		Enabled:            true,
		SlowQueryThreshold: time.Nanosecond,
	}, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, db.Create(&sampleRow{Name: "slow"}).Error)

	entries := logs.FilterMessage("Slow database query").All()
	require.NotEmpty(t, entries)
	assert.Equal(t, "create", entries[0].ContextMap()["operation"])
	assert.Equal(t, "sample_rows", entries[0].ContextMap()["table"])
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{}, zap.NewNop()))
	assert.Nil(t, db.Callback().Create().Get("telemetry_slow:after_create"))
}
