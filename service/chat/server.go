package chat

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"PPCommunity/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultSendQueueSize   = 256
	defaultWriteWait       = 10 * time.Second
	defaultMaxMessageSize  = 64 << 10
	defaultPresenceTimeout = 2 * time.Second
)

type Options struct {
	GatewayID       string
	SendQueueSize   int           // per-connection outbound queue
	WriteWait       time.Duration // deadline for a single frame write
	MaxMessageSize  int64         // inbound frame limit in bytes
	PresenceTimeout time.Duration
	CheckOrigin     func(r *http.Request) bool // nil accepts any origin
	Presence        Presence
	Logger          *zap.Logger
}

func (o *Options) norm() {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = defaultSendQueueSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.PresenceTimeout <= 0 {
		o.PresenceTimeout = defaultPresenceTimeout
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(r *http.Request) bool { return true }
	}
	if o.Presence == nil {
		o.Presence = nopPresence{}
	}
	o.Logger = logger.Named(o.Logger, "chat")
}

// Server is the realtime gateway: it owns the connection registry, the inbound
// event dispatcher and the broadcaster used by REST handlers.
type Server struct {
	gwID     string
	opts     Options
	verifier TokenVerifier
	reg      *Registry
	disp     *Dispatcher
	fanout   *Broadcaster
	upgrader websocket.Upgrader
	log      *zap.Logger
	closed   atomic.Bool
}

func NewServer(verifier TokenVerifier, opts Options) (*Server, error) {
	if verifier == nil {
		return nil, errors.New("chat: nil token verifier")
	}
	opts.norm()
	reg := NewRegistry()
	return &Server{
		gwID:     opts.GatewayID,
		opts:     opts,
		verifier: verifier,
		reg:      reg,
		disp:     NewDispatcher(),
		fanout:   NewBroadcaster(reg, opts.Logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
		log: opts.Logger,
	}, nil
}

func (s *Server) GatewayID() string         { return s.gwID }
func (s *Server) Registry() *Registry       { return s.reg }
func (s *Server) Disp() *Dispatcher         { return s.disp }
func (s *Server) Broadcaster() *Broadcaster { return s.fanout }

// Broadcast sends event to every open connection of userIDs. Call it only after
// the data change it announces has been committed.
func (s *Server) Broadcast(userIDs []string, event string, payload any) {
	s.fanout.Broadcast(userIDs, event, payload)
}

// Online returns how many connections userID currently has on this gateway.
func (s *Server) Online(userID string) int {
	return len(s.reg.ConnectionsFor(userID))
}

// TouchPresence renews the presence entry of conn.
func (s *Server) TouchPresence(conn *Connection) {
	s.presence(conn, "touch", s.opts.Presence.Touch)
}

// Close closes every connection with 1001 and rejects new handshakes.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	conns := s.reg.All()
	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
	s.log.Info("[WS] gateway closed", zap.Int("connections", len(conns)))
}

// release is the connection close handler.
func (s *Server) release(c *Connection) {
	last := s.reg.Unregister(c.userID, c)
	s.presence(c, "offline", s.opts.Presence.Offline)
	s.log.Info("[WS] unregistered", zap.String("user", c.userID), zap.String("conn", c.id), zap.Bool("last", last))
}

func (s *Server) presence(c *Connection, op string, fn func(context.Context, string, string) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PresenceTimeout)
	defer cancel()
	if err := fn(ctx, c.userID, c.id); err != nil {
		s.log.Warn("[presence] update failed", zap.String("op", op), zap.String("user", c.userID), zap.Error(err))
	}
}
