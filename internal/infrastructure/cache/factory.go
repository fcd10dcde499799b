package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/infrastructure/config"
)

// ExportLockFactory creates export locks based on configuration
type ExportLockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ExportLockFactoryOption is a functional option for configuring the factory
type ExportLockFactoryOption func(*ExportLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ExportLockFactoryOption {
	return func(f *ExportLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory lock when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) ExportLockFactoryOption {
	return func(f *ExportLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewExportLockFactory creates a new factory
func NewExportLockFactory(cfg config.RedisConfig, opts ...ExportLockFactoryOption) *ExportLockFactory {
	f := &ExportLockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisLock creates a Redis-based export lock
func (f *ExportLockFactory) CreateRedisLock() (*RedisExportLock, error) {
	lock, err := NewRedisExportLock(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis export lock: %w", err)
	}
	return lock, nil
}

// CreateLock returns a Redis lock, or an in-memory lock when Redis is
// disabled or unreachable and the fallback is allowed.
// WARNING: in-memory locks do not serialize exports across instances.
func (f *ExportLockFactory) CreateLock() (integration.ExportLock, func() error, error) {
	if f.redisConfig.Enabled {
		lock, err := f.CreateRedisLock()
		if err == nil {
			f.logger.Info("Using Redis export lock",
				zap.String("addr", fmt.Sprintf("%s:%d", f.redisConfig.Host, f.redisConfig.Port)))
			return lock, lock.Close, nil
		}
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("Redis required for export lock but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory export lock. "+
			"Concurrent exports of the same shop on different instances will not be prevented.",
			zap.Error(err),
		)
	}

	lock := NewInMemoryExportLock()
	return lock, lock.Close, nil
}
