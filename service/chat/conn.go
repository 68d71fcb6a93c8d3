package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one authenticated WebSocket session. Frames are queued on send
// and written by a single writer goroutine (gorilla/websocket allows only one
// concurrent writer).
type Connection struct {
	id     string
	userID string
	ws     *websocket.Conn

	send chan []byte
	done chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
	onClose   func(*Connection)

	writeWait time.Duration
	createdAt time.Time
	log       *zap.Logger
}

func newConnection(id, userID string, ws *websocket.Conn, queueSize int, writeWait time.Duration, log *zap.Logger) *Connection {
	if queueSize <= 0 {
		queueSize = defaultSendQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Connection{
		id:        id,
		userID:    userID,
		ws:        ws,
		send:      make(chan []byte, queueSize),
		done:      make(chan struct{}),
		writeWait: writeWait,
		createdAt: time.Now(),
		log:       log.With(zap.String("conn", id), zap.String("user", userID)),
	}
}

func (c *Connection) ID() string           { return c.id }
func (c *Connection) UserID() string       { return c.userID }
func (c *Connection) CreatedAt() time.Time { return c.createdAt }
func (c *Connection) State() ConnState     { return ConnState(c.state.Load()) }
func (c *Connection) IsOpen() bool         { return c.State() == StateAuthenticated }

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// authenticate moves connecting -> authenticated. It fails for a closed connection.
func (c *Connection) authenticate() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthenticated))
}

// Send queues a text frame without blocking. It returns false when the
// connection is not open or its queue is full; the frame is dropped.
func (c *Connection) Send(frame []byte) bool {
	if !c.IsOpen() {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("[WS] send queue full, frame dropped", zap.Int("queue", cap(c.send)))
		return false
	}
}

// Close terminates the connection with the given close code. Only the first
// call has an effect; the close handler runs once, and only for a connection
// that had been authenticated.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		prev := ConnState(c.state.Swap(int32(StateClosed)))
		close(c.done)

		if c.ws != nil {
			msg := websocket.FormatCloseMessage(code, reason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
			_ = c.ws.Close()
		}

		if prev == StateAuthenticated && c.onClose != nil {
			c.onClose(c)
		}
		c.log.Debug("[WS] closed", zap.Int("code", code), zap.String("from", prev.String()))
	})
}

func (c *Connection) writePump() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Info("[WS] write failed", zap.Error(err))
				c.Close(websocket.CloseGoingAway, "write failed")
				return
			}
		}
	}
}
