package lock

import (
	"context"
	"fmt"
	"time"

	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Only the holder's token may delete the key, so an expired holder cannot
// release a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

const (
	defaultLease = 30 * time.Second
	// room for the store write and audit entry after the last gateway call
	leaseMargin = 10 * time.Second
)

// LeaseFor sizes the lease for a write that makes up to calls gateway
// requests of at most timeout each. A refund fetches then refunds, so the
// order writes need two.
func LeaseFor(timeout time.Duration, calls int) time.Duration {
	lease := time.Duration(calls)*timeout + leaseMargin
	if lease < defaultLease {
		return defaultLease
	}
	return lease
}

type RedisOrderLocker struct {
	client *redis.Client
	log    *logrus.Logger
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedisOrderLocker(client *redis.Client, log *logrus.Logger) *RedisOrderLocker {
	return &RedisOrderLocker{
		client: client,
		log:    log,
		ttl:    defaultLease,
		wait:   3 * time.Second,
		retry:  50 * time.Millisecond,
	}
}

// WithTimings overrides the lease, the wait budget and the retry interval.
func (l *RedisOrderLocker) WithTimings(ttl, wait, retry time.Duration) *RedisOrderLocker {
	l.ttl, l.wait, l.retry = ttl, wait, retry
	return l
}

// WithLease overrides only the lease.
func (l *RedisOrderLocker) WithLease(ttl time.Duration) *RedisOrderLocker {
	l.ttl = ttl
	return l
}

func lockKey(orderID string) string {
	return "order_lock:" + orderID
}

func (l *RedisOrderLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	key := lockKey(orderID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, repo.ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisOrderLocker) release(key, token string) {
	// the caller ctx may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.WithError(err).WithField("key", key).Warn("release order lock")
	}
}
