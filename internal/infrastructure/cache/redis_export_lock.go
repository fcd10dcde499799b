package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/merchportal/backend/internal/domain/integration"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisExportLock implements integration.ExportLock using Redis.
// This is suitable for distributed deployments where several instances
// can receive export requests for the same shop.
type RedisExportLock struct {
	client    *redis.Client
	keyPrefix string
	token     string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisExportLock connects to Redis and creates a lock
func NewRedisExportLock(cfg RedisConfig) (*RedisExportLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisExportLockWithClient(client, ""), nil
}

// NewRedisExportLockWithClient creates a lock with an existing Redis client
func NewRedisExportLockWithClient(client *redis.Client, keyPrefix string) *RedisExportLock {
	return &RedisExportLock{
		client:    client,
		keyPrefix: keyPrefix,
		token:     uuid.NewString(),
	}
}

// Acquire takes the lock with SET NX and a TTL.
// Returns false when another holder has the key.
func (l *RedisExportLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release frees the lock if this instance still holds it
func (l *RedisExportLock) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection
func (l *RedisExportLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (l *RedisExportLock) Close() error {
	return l.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisExportLock) GetClient() *redis.Client {
	return l.client
}

var _ integration.ExportLock = (*RedisExportLock)(nil)
