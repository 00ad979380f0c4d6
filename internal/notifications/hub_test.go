package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(7, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(7, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	_, err = hub.Register(8, nil)
	assert.NoError(t, err)
}

func TestHub_SendToUserOnlyReachesThatUser(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	alice, err := hub.Register(1, nil)
	require.NoError(t, err)
	bob, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.SendToUser(1, []byte("hi"))
	assert.Equal(t, []byte("hi"), <-alice.Send)
	assert.Empty(t, bob.Send)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	c, err := hub.Register(3, nil)
	require.NoError(t, err)
	for i := 0; i < sendBufferSize; i++ {
		c.TrySend([]byte("x"))
	}
	assert.False(t, c.lagged.Load())
	c.TrySend([]byte("overflow"))
	assert.Len(t, c.Send, sendBufferSize)
	assert.True(t, c.lagged.Load())
}

func TestHub_StartWiringForwardsUserChannel(t *testing.T) {
	_, rdb := newRedis(t)
	hub := NewHub(rdb)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	client, err := hub.Register(42, nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishEvent(ctx, 42, "notification", map[string]any{"id": 1}))
	select {
	case msg := <-client.Send:
		assert.JSONEq(t, `{"type":"notification","payload":{"id":1}}`, string(msg))
	case <-time.After(testEventuallyTimeout):
		t.Fatal("notification not forwarded")
	}

	// Another user's channel does not reach this socket.
	require.NoError(t, n.PublishUser(ctx, 43, "elsewhere"))
	assert.Never(t, func() bool { return len(client.Send) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestHub_PresenceTracksLastDisconnect(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()
	ctx := context.Background()

	a, err := hub.Register(15, nil)
	require.NoError(t, err)
	b, err := hub.Register(15, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.OnlineCount(ctx))

	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.OnlineCount(ctx))
	hub.UnregisterClient(b)
	assert.Zero(t, hub.OnlineCount(ctx))
}
