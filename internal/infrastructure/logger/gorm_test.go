package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func query(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	const stmt = `SELECT * FROM "ec_export_runs" WHERE id = 'x'`

	t.Run("error is logged without sql by default", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn)
		l.Trace(context.Background(), time.Now(), query(stmt, 0), errors.New("connection refused"))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "SQL statement failed", entry.Message)
		_, hasSQL := entry.ContextMap()["sql"]
		assert.False(t, hasSQL)
	})

	t.Run("sql included when enabled", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn, WithSQL(true))
		l.Trace(context.Background(), time.Now(), query(stmt, 0), errors.New("connection refused"))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, stmt, logs.All()[0].ContextMap()["sql"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn)
		l.Trace(context.Background(), time.Now(), query(stmt, 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("slow query is a warning", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		l.Trace(context.Background(), time.Now().Add(-time.Second), query(stmt, 3), nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "Slow SQL statement", logs.All()[0].Message)
		assert.Equal(t, int64(3), logs.All()[0].ContextMap()["rows"])
	})

	t.Run("normal query only at info level", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn)
		l.Trace(context.Background(), time.Now(), query(stmt, 1), nil)
		assert.Equal(t, 0, logs.Len())

		l2, logs2 := newObservedGormLogger(gormlogger.Info)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-7")
		l2.Trace(ctx, time.Now(), query(stmt, 1), nil)
		require.Equal(t, 1, logs2.Len())
		assert.Equal(t, "req-7", logs2.All()[0].ContextMap()["request_id"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Silent)
		l.Trace(context.Background(), time.Now(), query(stmt, 0), errors.New("boom"))
		assert.Equal(t, 0, logs.Len())
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	l, _ := newObservedGormLogger(gormlogger.Warn)
	changed := l.LogMode(gormlogger.Info).(*GormLogger)
	assert.Equal(t, gormlogger.Info, changed.level)
	assert.Equal(t, gormlogger.Warn, l.level)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("other"))
}

var _ gormlogger.Interface = (*GormLogger)(nil)
