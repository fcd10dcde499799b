package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errRetryable = errors.New("temporary")

func fastBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		AttemptTimeout: time.Second,
		MaxRetries:     3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		ShouldRetry: func(err error) bool {
			return errors.Is(err, errRetryable)
		},
	}
}

func newTestRunner(t *testing.T, cfg BatchConfig) *BatchRunner {
	t.Helper()
	runner, err := NewBatchRunner(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return runner
}

// ---------------------------------------------------------------------------
// BatchConfig Tests
// ---------------------------------------------------------------------------

func TestBatchConfig_Validate(t *testing.T) {
	tests := []struct {
		name            string
		concurrency     int
		wantConcurrency int
	}{
		{"zero uses default", 0, DefaultBatchConcurrency},
		{"negative uses default", -2, DefaultBatchConcurrency},
		{"within range kept", 6, 6},
		{"one kept", 1, 1},
		{"above max clamped", 50, MaxBatchConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := BatchConfig{MaxConcurrency: tt.concurrency}
			require.NoError(t, cfg.Validate())
			assert.Equal(t, tt.wantConcurrency, cfg.MaxConcurrency)
			assert.Equal(t, DefaultAttemptTimeout, cfg.AttemptTimeout)
		})
	}

	cfg := BatchConfig{MaxRetries: -1}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestBatchConfig_Backoff(t *testing.T) {
	cfg := DefaultBatchConfig()
	assert.Equal(t, time.Duration(0), cfg.Backoff(0))
	assert.Equal(t, 500*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, time.Second, cfg.Backoff(2))
	assert.Equal(t, 2*time.Second, cfg.Backoff(3))
	assert.Equal(t, 8*time.Second, cfg.Backoff(5))
	assert.Equal(t, 10*time.Second, cfg.Backoff(6))
	assert.Equal(t, 10*time.Second, cfg.Backoff(40))
}

// ---------------------------------------------------------------------------
// BatchRunner Tests
// ---------------------------------------------------------------------------

func TestBatchRunner_RunsEveryTaskInOrder(t *testing.T) {
	runner := newTestRunner(t, fastBatchConfig())

	var mu sync.Mutex
	seen := make(map[int]int)
	results := runner.Run(context.Background(), 20, func(ctx context.Context, index int) error {
		mu.Lock()
		seen[index]++
		mu.Unlock()
		if index%5 == 0 {
			return errors.New("permanent")
		}
		return nil
	})

	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, 1, r.Attempts)
		assert.Equal(t, 1, seen[i])
		if i%5 == 0 {
			assert.EqualError(t, r.Err, "permanent")
		} else {
			assert.NoError(t, r.Err)
		}
	}
}

func TestBatchRunner_ZeroTasks(t *testing.T) {
	runner := newTestRunner(t, fastBatchConfig())
	called := false
	results := runner.Run(context.Background(), 0, func(ctx context.Context, index int) error {
		called = true
		return nil
	})
	assert.Empty(t, results)
	assert.False(t, called)
}

func TestBatchRunner_BoundsConcurrency(t *testing.T) {
	cfg := fastBatchConfig()
	cfg.MaxConcurrency = 3
	runner := newTestRunner(t, cfg)

	var active, peak int32
	runner.Run(context.Background(), 12, func(ctx context.Context, index int) error {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestBatchRunner_RetriesRetryableErrors(t *testing.T) {
	runner := newTestRunner(t, fastBatchConfig())

	var calls int32
	results := runner.Run(context.Background(), 1, func(ctx context.Context, index int) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errRetryable
		}
		return nil
	})

	assert.NoError(t, results[0].Err)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestBatchRunner_GivesUpAfterMaxRetries(t *testing.T) {
	runner := newTestRunner(t, fastBatchConfig())

	results := runner.Run(context.Background(), 1, func(ctx context.Context, index int) error {
		return errRetryable
	})

	assert.ErrorIs(t, results[0].Err, errRetryable)
	assert.Equal(t, 4, results[0].Attempts)
}

func TestBatchRunner_ZeroMaxRetriesMakesSingleAttempt(t *testing.T) {
	cfg := fastBatchConfig()
	cfg.MaxRetries = 0
	runner := newTestRunner(t, cfg)

	results := runner.Run(context.Background(), 1, func(ctx context.Context, index int) error {
		return errRetryable
	})

	assert.ErrorIs(t, results[0].Err, errRetryable)
	assert.Equal(t, 1, results[0].Attempts)
}

func TestBatchRunner_DoesNotRetryPermanentErrors(t *testing.T) {
	runner := newTestRunner(t, fastBatchConfig())

	results := runner.Run(context.Background(), 1, func(ctx context.Context, index int) error {
		return errors.New("bad request")
	})

	assert.Equal(t, 1, results[0].Attempts)
}

func TestBatchRunner_NilShouldRetryNeverRetries(t *testing.T) {
	cfg := fastBatchConfig()
	cfg.ShouldRetry = nil
	runner := newTestRunner(t, cfg)

	results := runner.Run(context.Background(), 1, func(ctx context.Context, index int) error {
		return errRetryable
	})
	assert.Equal(t, 1, results[0].Attempts)
}

func TestBatchRunner_AttemptTimeout(t *testing.T) {
	cfg := fastBatchConfig()
	cfg.AttemptTimeout = 20 * time.Millisecond
	cfg.ShouldRetry = nil
	runner := newTestRunner(t, cfg)

	results := runner.Run(context.Background(), 1, func(ctx context.Context, index int) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestBatchRunner_CancelledContextSkipsRemainingTasks(t *testing.T) {
	cfg := fastBatchConfig()
	cfg.MaxConcurrency = 1
	runner := newTestRunner(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := runner.Run(ctx, 5, func(ctx context.Context, index int) error {
		if index == 1 {
			cancel()
		}
		return nil
	})

	require.Len(t, results, 5)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[1].Attempts)

	for _, r := range results[2:] {
		assert.Equal(t, 0, r.Attempts)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
