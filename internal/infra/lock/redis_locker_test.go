package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/infra/lock"
	repo "storefront/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisOrderLocker_SecondCallerTimesOut(t *testing.T) {
	_, c := newRedis(t)
	l := lock.NewRedisOrderLocker(c, logrus.New()).WithTimings(5*time.Second, 100*time.Millisecond, 10*time.Millisecond)
	orderID := uuid.NewString()

	unlock, err := l.Lock(context.Background(), orderID)
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), orderID)
	assert.ErrorIs(t, err, repo.ErrLockNotAcquired)

	unlock()

	unlock2, err := l.Lock(context.Background(), orderID)
	require.NoError(t, err)
	unlock2()
}

func TestRedisOrderLocker_StaleReleaseKeepsNewHolder(t *testing.T) {
	mr, c := newRedis(t)
	l := lock.NewRedisOrderLocker(c, logrus.New()).WithTimings(time.Second, 200*time.Millisecond, 10*time.Millisecond)
	orderID := uuid.NewString()

	staleUnlock, err := l.Lock(context.Background(), orderID)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh := lock.NewRedisOrderLocker(c, logrus.New())
	_, err = fresh.Lock(context.Background(), orderID)
	require.NoError(t, err)

	staleUnlock()

	assert.True(t, mr.Exists("order_lock:"+orderID))
}

func TestRedisOrderLocker_SerialisesWriters(t *testing.T) {
	_, c := newRedis(t)
	l := lock.NewRedisOrderLocker(c, logrus.New()).WithTimings(5*time.Second, 5*time.Second, time.Millisecond)

	var (
		wg      sync.WaitGroup
		counter int
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "o1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			v := counter
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			counter = v + 1
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, counter)
	assert.Equal(t, 1, maxSeen)
}

func TestRedisOrderLocker_LeaseFromGatewayTimeout(t *testing.T) {
	mr, c := newRedis(t)
	lease := lock.LeaseFor(15*time.Second, 2)
	assert.Equal(t, 40*time.Second, lease)
	assert.Equal(t, 30*time.Second, lock.LeaseFor(time.Second, 2))

	l := lock.NewRedisOrderLocker(c, logrus.New()).WithLease(lease)
	unlock, err := l.Lock(context.Background(), "o1")
	require.NoError(t, err)
	defer unlock()

	assert.Equal(t, lease, mr.TTL("order_lock:o1"))
}
