// Package client is the browser-side connection wrapper in Go form: it keeps
// one gateway connection alive, reconnects with backoff and dispatches the
// pushed events to callbacks.
package client

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"PPCommunity/logger"
	"PPCommunity/service/chat"
	"PPCommunity/tools/decode"
	"PPCommunity/tools/errs"
	"PPCommunity/tools/safe"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned by Run when the gateway rejects the token.
// Retrying with the same token cannot succeed.
var ErrUnauthorized = errors.New("client: unauthorized")

const maxAttempt = 16

type Options struct {
	URL          string // ws://host:port/ws
	Token        string
	PingInterval time.Duration // default 25s
	MinBackoff   time.Duration // default 500ms
	MaxBackoff   time.Duration // default 30s
	Dialer       *websocket.Dialer
	Logger       *zap.Logger
}

func (o *Options) norm() {
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = o.MinBackoff
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
}

// Event is one pushed frame.
type Event struct {
	Name string
	Data json.RawMessage
}

type Handler func(Event)

type Client struct {
	opts     Options
	target   string
	log      *zap.Logger
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func New(opts Options) (*Client, error) {
	opts.norm()
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, errors.Wrap(err, "client url")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.Errorf("client url scheme %q, want ws or wss", u.Scheme)
	}
	q := u.Query()
	q.Set("token", opts.Token)
	u.RawQuery = q.Encode()

	return &Client{
		opts:     opts,
		target:   u.String(),
		log:      logger.Named(opts.Logger, "client"),
		handlers: make(map[string][]Handler),
	}, nil
}

// On registers fn for event. "connected" fires after every (re)connect.
func (c *Client) On(event string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// Run keeps the connection up until ctx is done or the token is rejected.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		established, err := c.session(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		if established {
			attempt = 0
		}

		wait := c.backoff(attempt)
		c.log.Info("[Client] disconnected, retrying", zap.Error(err), zap.Duration("in", wait))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if attempt < maxAttempt {
			attempt++
		}
	}
}

// backoff doubles from MinBackoff up to MaxBackoff, minus up to 10% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.MinBackoff << attempt
	if d > c.opts.MaxBackoff || d <= 0 {
		d = c.opts.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d/5) + 1))
	return d - jitter/2
}

// session serves one connection. established reports whether the gateway
// accepted it (sent "connected").
func (c *Client) session(ctx context.Context) (established bool, err error) {
	ws, _, err := c.opts.Dialer.DialContext(ctx, c.target, nil)
	if err != nil {
		return false, errors.Wrap(err, "dial")
	}
	defer ws.Close()

	var wmu sync.Mutex
	write := func(msgType int, data []byte) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return ws.WriteMessage(msgType, data)
	}

	stop := make(chan struct{})
	defer close(stop)
	safe.Go(c.log, "client.watch", func() {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = ws.Close()
				return
			case <-ticker.C:
				if err := write(websocket.TextMessage, pingFrame); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && (ce.Code == errs.CloseTokenRequired || ce.Code == errs.CloseTokenInvalid) {
				return established, errors.Wrapf(ErrUnauthorized, "close %d %s", ce.Code, ce.Text)
			}
			return established, err
		}

		var env chat.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.log.Debug("[Client] ignoring frame", zap.ByteString("sample", sample(data)))
			continue
		}
		if env.Event == chat.EventConnected && !established {
			established = true
			c.log.Info("[Client] connected", zap.String("url", c.opts.URL))
		}
		c.emit(Event{Name: env.Event, Data: env.Data})
	}
}

func (c *Client) emit(ev Event) {
	c.mu.RLock()
	hs := append([]Handler(nil), c.handlers[ev.Name]...)
	c.mu.RUnlock()
	for _, h := range hs {
		c.call(h, ev)
	}
}

func (c *Client) call(h Handler, ev Event) {
	defer safe.Recover(c.log, "client.handler."+ev.Name, nil)
	h(ev)
}

// Decode loosely decodes the event data into T.
func Decode[T any](ev Event) (*T, error) {
	if len(ev.Data) == 0 {
		return nil, errors.Errorf("event %q has no data", ev.Name)
	}
	return decode.DecodeJSON[T](ev.Data)
}

var pingFrame = []byte(`{"event":"ping"}`)

func sample(b []byte) []byte {
	if len(b) > 256 {
		return b[:256]
	}
	return b
}
