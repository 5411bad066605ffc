package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/membersync/internal/core"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl), mr
}

func TestRedis_LockIsExclusive(t *testing.T) {
	locker, mr := newTestLocker(t, time.Minute)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "import-apply:job-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:import-apply:job-1"))

	_, err = locker.Lock(ctx, "import-apply:job-1")
	assert.ErrorIs(t, err, core.ErrApplyInProgress)

	// Other jobs are independent.
	unlockOther, err := locker.Lock(ctx, "import-apply:job-2")
	require.NoError(t, err)
	require.NoError(t, unlockOther(ctx))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("lock:import-apply:job-1"))

	unlock, err = locker.Lock(ctx, "import-apply:job-1")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestRedis_ExpiredLockCanBeRetaken(t *testing.T) {
	locker, mr := newTestLocker(t, 5*time.Second)
	ctx := context.Background()

	staleUnlock, err := locker.Lock(ctx, "job")
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)

	unlock, err := locker.Lock(ctx, "job")
	require.NoError(t, err)

	// The stale holder must not release the new holder's lock.
	require.NoError(t, staleUnlock(ctx))
	assert.True(t, mr.Exists("lock:job"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("lock:job"))
}

func TestRedis_ServerDown(t *testing.T) {
	locker, mr := newTestLocker(t, time.Minute)
	mr.Close()

	_, err := locker.Lock(context.Background(), "job")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrApplyInProgress)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	client.Close()

	_, err = Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}
