package cache

import (
	"context"
	"sync"
	"time"

	"github.com/merchportal/backend/internal/domain/integration"
)

// InMemoryExportLock implements integration.ExportLock with a map of expiry times.
// This is suitable for single-instance deployments and testing.
type InMemoryExportLock struct {
	mu        sync.Mutex
	held      map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryExportLock creates a new in-memory lock.
// It starts a background goroutine to drop expired locks.
func NewInMemoryExportLock() *InMemoryExportLock {
	l := &InMemoryExportLock{
		held:     make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Acquire takes the lock unless an unexpired holder exists
func (l *InMemoryExportLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiresAt, exists := l.held[key]; exists && now.Before(expiresAt) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

// Release frees the lock
func (l *InMemoryExportLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// Close stops the cleanup goroutine.
// Safe to call multiple times.
func (l *InMemoryExportLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryExportLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryExportLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, expiresAt := range l.held {
		if !now.Before(expiresAt) {
			delete(l.held, key)
		}
	}
}

// Size returns the number of held locks (for testing/monitoring)
func (l *InMemoryExportLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

var _ integration.ExportLock = (*InMemoryExportLock)(nil)
