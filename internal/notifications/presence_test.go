package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresence_ReaperRemovesStaleMembers(t *testing.T) {
	_, rdb := newRedis(t)
	p := NewPresence(rdb)
	defer p.Stop()
	ctx := context.Background()

	require.NoError(t, rdb.SAdd(ctx, presenceOnlineSetKey, "44", "not-a-number").Err())
	p.reapOnce(ctx)

	members, err := rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestPresence_SharedAcrossInstances(t *testing.T) {
	_, rdb := newRedis(t)
	a := NewPresence(rdb)
	defer a.Stop()
	b := NewPresence(rdb)
	defer b.Stop()
	ctx := context.Background()

	assert.Zero(t, b.OnlineCount(ctx))
	a.Register(ctx, 9)
	assert.Equal(t, 1, b.OnlineCount(ctx))
}

func TestPresence_GraceKeepsRedisEntryOnReconnect(t *testing.T) {
	mr, rdb := newRedis(t)
	p := NewPresence(rdb)
	defer p.Stop()
	p.SetOfflineGracePeriod(30 * time.Millisecond)
	ctx := context.Background()

	p.Register(ctx, 10)
	p.Unregister(10)
	p.Register(ctx, 10)

	time.Sleep(60 * time.Millisecond)
	ok, err := rdb.SIsMember(ctx, presenceOnlineSetKey, "10").Result()
	require.NoError(t, err)
	assert.True(t, ok)

	// Once the last-seen key expires and the user is gone, the entry is dropped.
	p.Unregister(10)
	mr.FastForward(presenceTTL + time.Second)
	assert.Eventually(t, func() bool {
		ok, err := rdb.SIsMember(ctx, presenceOnlineSetKey, "10").Result()
		return err == nil && !ok
	}, testEventuallyTimeout, testPollInterval)
}
