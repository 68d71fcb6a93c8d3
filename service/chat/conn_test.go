package chat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionCloseRunsHandlerOnce(t *testing.T) {
	c := newTestConn("c1", "alice")
	var calls atomic.Int32
	c.onClose = func(*Connection) { calls.Add(1) }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close(websocket.CloseNormalClosure, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateClosed, c.State())
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestConnectionCloseBeforeAuthSkipsHandler(t *testing.T) {
	c := newConnection("c1", "alice", nil, 4, time.Second, nil)
	called := false
	c.onClose = func(*Connection) { called = true }

	c.Close(4001, "token required")

	assert.False(t, called)
	assert.False(t, c.authenticate(), "a closed connection never becomes authenticated")
	assert.Equal(t, StateClosed, c.State())
}

func TestConnectionSend(t *testing.T) {
	req := require.New(t)
	c := newConnection("c1", "alice", nil, 2, time.Second, nil)

	req.False(c.Send([]byte("x")), "not authenticated yet")
	req.True(c.authenticate())
	req.Equal("authenticated", c.State().String())

	req.True(c.Send([]byte("1")))
	req.True(c.Send([]byte("2")))
	req.False(c.Send([]byte("3")), "queue full")
	req.Equal([]byte("1"), <-c.send)

	c.Close(websocket.CloseNormalClosure, "")
	req.False(c.Send([]byte("4")))
}
