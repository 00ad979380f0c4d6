package notifications

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/middleware"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096 // inbound frames are only keepalives
	sendBufferSize = 256
)

// laggedNotice tells a slow client that pushes were dropped and it should
// re-fetch its notifications.
var laggedNotice = []byte(`{"type":"notifications_dropped","payload":{"reason":"buffer_full"}}`)

// socket is the part of *websocket.Conn a Client drives.
type socket interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one notification socket owned by a Hub.
type Client struct {
	hub    *Hub
	Conn   socket // nil for clients that only exercise fan-out
	UserID uint

	// Send queues outbound pushes. It is never closed; done ends the writer.
	Send chan []byte

	done     chan struct{}
	doneOnce sync.Once
	lagged   atomic.Bool
}

func newClient(hub *Hub, conn socket, userID uint) *Client {
	return &Client{
		hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Serve pumps the socket until the peer goes away. It blocks on the read
// side and unregisters the client on return.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.stop()
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.hub.touch(c.UserID)
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("notification socket closed unexpectedly",
					slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
			}
			return
		}
		c.hub.touch(c.UserID)
	}
}

func (c *Client) write(kind int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(kind, data)
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.Send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
			if len(c.Send) == 0 && c.lagged.Swap(false) {
				if err := c.write(websocket.TextMessage, laggedNotice); err != nil {
					return
				}
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full queue drops the message
// and the client receives laggedNotice once it catches up.
func (c *Client) TrySend(message []byte) {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		return
	default:
	}

	select {
	case c.Send <- message:
	default:
		c.lagged.Store(true)
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("notification queue full, dropping push", slog.Uint64("user_id", uint64(c.UserID)))
	}
}
