package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Batch runner limits
const (
	DefaultBatchConcurrency = 4
	MaxBatchConcurrency     = 8
	DefaultAttemptTimeout   = 30 * time.Second
	DefaultBatchRetries     = 3
	DefaultRetryBaseDelay   = 500 * time.Millisecond
	DefaultRetryMaxDelay    = 10 * time.Second
)

// BatchConfig holds batch runner configuration
type BatchConfig struct {
	// MaxConcurrency is the number of workers, clamped to [1, MaxBatchConcurrency]
	MaxConcurrency int
	// AttemptTimeout bounds every single attempt
	AttemptTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// BaseDelay is the backoff before the first retry; it doubles on each retry
	BaseDelay time.Duration
	// MaxDelay caps the backoff
	MaxDelay time.Duration
	// ShouldRetry decides whether a failed attempt is retried. Nil retries nothing.
	ShouldRetry func(error) bool
}

// DefaultBatchConfig returns default batch configuration
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: DefaultBatchConcurrency,
		AttemptTimeout: DefaultAttemptTimeout,
		MaxRetries:     DefaultBatchRetries,
		BaseDelay:      DefaultRetryBaseDelay,
		MaxDelay:       DefaultRetryMaxDelay,
	}
}

// Validate clamps the configuration into its accepted ranges
func (c *BatchConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("%w: retry delays must not be negative", ErrInvalidConfig)
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultBatchConcurrency
	}
	if c.MaxConcurrency > MaxBatchConcurrency {
		c.MaxConcurrency = MaxBatchConcurrency
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.MaxDelay > 0 && c.BaseDelay > c.MaxDelay {
		c.BaseDelay = c.MaxDelay
	}
	return nil
}

// Backoff returns the delay before the given retry (1-based)
func (c BatchConfig) Backoff(retry int) time.Duration {
	if retry < 1 || c.BaseDelay <= 0 {
		return 0
	}
	delay := c.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// TaskFunc performs one attempt of the task at index
type TaskFunc func(ctx context.Context, index int) error

// TaskResult is the final outcome of one task
type TaskResult struct {
	Index int
	// Attempts is 0 when the task was never started
	Attempts int
	Err      error
	Duration time.Duration
}

// BatchRunner runs a fixed set of independent tasks on a bounded worker pool
type BatchRunner struct {
	config BatchConfig
	logger *zap.Logger
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(config BatchConfig, logger *zap.Logger) (*BatchRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchRunner{config: config, logger: logger}, nil
}

// Config returns the effective configuration
func (r *BatchRunner) Config() BatchConfig {
	return r.config
}

// Run executes fn for every index in [0, n) and waits for all of them.
// Results are returned in index order. Tasks not started before ctx is
// done are reported with ctx's error and zero attempts.
func (r *BatchRunner) Run(ctx context.Context, n int, fn TaskFunc) []TaskResult {
	results := make([]TaskResult, n)
	if n == 0 {
		return results
	}
	for i := range results {
		results[i].Index = i
	}

	workers := r.config.MaxConcurrency
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for index := range jobs {
				if ctx.Err() != nil {
					results[index].Err = ctx.Err()
					continue
				}
				results[index] = r.runTask(ctx, index, fn, workerID)
			}
		}(w)
	}

	dispatched := 0
dispatch:
	for ; dispatched < n && ctx.Err() == nil; dispatched++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- dispatched:
		}
	}
	close(jobs)
	wg.Wait()

	if dispatched < n {
		r.logger.Warn("Batch interrupted before all tasks were started",
			zap.Int("started", dispatched),
			zap.Int("total", n),
			zap.Error(ctx.Err()),
		)
		for i := dispatched; i < n; i++ {
			results[i].Err = ctx.Err()
		}
	}
	return results
}

// runTask runs one task with per-attempt timeout and retry
func (r *BatchRunner) runTask(ctx context.Context, index int, fn TaskFunc, workerID int) (result TaskResult) {
	result.Index = index
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	for {
		result.Attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
		err := fn(attemptCtx, index)
		cancel()

		result.Err = err
		if err == nil {
			return result
		}

		retry := result.Attempts
		if retry > r.config.MaxRetries || r.config.ShouldRetry == nil || !r.config.ShouldRetry(err) {
			return result
		}

		delay := r.config.Backoff(retry)
		r.logger.Debug("Task scheduled for retry",
			zap.Int("worker_id", workerID),
			zap.Int("index", index),
			zap.Int("retry_count", retry),
			zap.Int("max_retries", r.config.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result
		case <-timer.C:
		}
	}
}
