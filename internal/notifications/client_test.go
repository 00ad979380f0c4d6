package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	kind int
	data []byte
}

type fakeSocket struct {
	inbound chan []byte
	written chan frame
	closed  chan struct{}
	once    sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		inbound: make(chan []byte),
		written: make(chan frame, 2*sendBufferSize),
		closed:  make(chan struct{}),
	}
}

func (f *fakeSocket) SetReadLimit(int64)                {}
func (f *fakeSocket) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeSocket) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeSocket) SetPongHandler(func(string) error) {}
func (f *fakeSocket) Close() error                      { f.once.Do(func() { close(f.closed) }); return nil }

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return websocket.TextMessage, msg, nil
	case <-f.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeSocket) WriteMessage(kind int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	default:
	}
	f.written <- frame{kind, append([]byte(nil), data...)}
	return nil
}

func (f *fakeSocket) next(t *testing.T) frame {
	t.Helper()
	select {
	case fr := <-f.written:
		return fr
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no frame written")
		return frame{}
	}
}

func TestClient_ServeDeliversQueueThenLaggedNotice(t *testing.T) {
	hub := NewHub(nil)
	defer func() { _ = hub.Shutdown(context.Background()) }()

	sock := newFakeSocket()
	c, err := hub.Register(9, sock)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize; i++ {
		c.TrySend([]byte(`{"type":"notification"}`))
	}
	c.TrySend([]byte("dropped"))

	served := make(chan struct{})
	go func() {
		c.Serve()
		close(served)
	}()

	for i := 0; i < sendBufferSize; i++ {
		fr := sock.next(t)
		assert.Equal(t, websocket.TextMessage, fr.kind)
		assert.JSONEq(t, `{"type":"notification"}`, string(fr.data))
	}
	notice := sock.next(t)
	assert.Equal(t, laggedNotice, notice.data)

	// inbound keepalives are accepted and ignored
	sock.inbound <- []byte("ping")
	assert.Equal(t, 1, hub.OnlineCount(context.Background()))

	_ = sock.Close()
	select {
	case <-served:
	case <-time.After(testEventuallyTimeout):
		t.Fatal("Serve did not return after the peer closed")
	}
	assert.Zero(t, hub.OnlineCount(context.Background()))

	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
}

func TestClient_TrySendAfterShutdownIsDropped(t *testing.T) {
	hub := NewHub(nil)
	c, err := hub.Register(4, nil)
	require.NoError(t, err)
	require.NoError(t, hub.Shutdown(context.Background()))

	c.TrySend([]byte("x"))
	assert.Empty(t, c.Send)
}
