package chat

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"PPCommunity/tools/errs"
	"PPCommunity/tools/ids"
	"PPCommunity/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWS is the gin route for the upgrade endpoint, e.g. ws://host/ws?token=...
func (s *Server) HandleWS(c *gin.Context) {
	s.ServeWS(c.Writer, c.Request)
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// not a WebSocket request, or origin rejected
		s.log.Info("[WS] upgrade websocket error", zap.Error(err))
		return
	}

	conn, err := s.handshake(ws, r.URL.Query().Get("token"))
	if err != nil {
		s.log.Info("[WS] handshake rejected", zap.String("remote", ws.RemoteAddr().String()), zap.Error(err))
		s.reject(ws, err)
		return
	}

	safe.Go(s.log, "ws-writer", conn.writePump)
	s.readLoop(conn)
}

// handshake moves a fresh socket to the authenticated state and registers it.
// Nothing is registered when it fails.
func (s *Server) handshake(ws *websocket.Conn, token string) (*Connection, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.ErrTokenRequired.Wrap()
	}
	userID, err := s.verify(token)
	if err != nil {
		return nil, errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	if s.closed.Load() {
		return nil, errs.ErrGoingAway.Wrap()
	}

	conn := newConnection(ids.ConnID(), userID, ws, s.opts.SendQueueSize, s.opts.WriteWait, s.log)
	conn.onClose = s.release
	conn.authenticate()

	// queued before Register so it is the first frame the client reads
	hello, err := ConnectedFrame(userID)
	if err != nil {
		return nil, errs.ErrInternal.WrapMsg(err.Error())
	}
	conn.Send(hello)

	first := s.reg.Register(userID, conn)
	if s.closed.Load() {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
		return nil, errs.ErrGoingAway.Wrap()
	}
	s.presence(conn, "online", s.opts.Presence.Online)
	s.log.Info("[WS] connected", zap.String("user", userID), zap.String("conn", conn.id), zap.Bool("first", first))
	return conn, nil
}

// verify treats a panicking verifier like a rejecting one.
func (s *Server) verify(token string) (userID string, err error) {
	defer safe.Recover(s.log, "verify", func(perr error) { err = perr })
	userID, err = s.verifier.Verify(token)
	if err == nil && userID == "" {
		err = errors.New("empty user identity")
	}
	return userID, err
}

func (s *Server) reject(ws *websocket.Conn, err error) {
	code := errs.CloseCode(err)
	reason := ""
	if ce, ok := errs.AsCode(err); ok {
		reason = ce.Msg
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.opts.WriteWait))
	_ = ws.Close()
}

// readLoop only reads; every exit path goes through conn.Close, which runs the
// close handler once.
func (s *Server) readLoop(conn *Connection) {
	ws := conn.ws
	ws.SetReadLimit(s.opts.MaxMessageSize)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				s.log.Debug("[WS] peer closed", zap.String("conn", conn.id), zap.Error(err))
			case errors.As(err, &ne) && ne.Timeout():
				s.log.Info("[WS] read timeout", zap.String("conn", conn.id), zap.Error(err))
			default:
				s.log.Debug("[WS] read err", zap.String("conn", conn.id), zap.Error(err))
			}
			conn.Close(websocket.CloseNormalClosure, "")
			return
		}

		if err := s.handleFrame(conn, data); err != nil {
			s.log.Error("[WS] handler failed, closing", zap.String("conn", conn.id), zap.Error(err))
			conn.Close(errs.CloseCode(err), "internal error")
			return
		}
	}
}

// handleFrame parses and dispatches one inbound frame. Malformed frames and
// unknown events are ignored; a handler error or panic is returned.
func (s *Server) handleFrame(conn *Connection, data []byte) (err error) {
	defer safe.Recover(s.log, "ws-handler", func(perr error) { err = perr })

	f, perr := ParseFrame(data)
	if perr != nil {
		sample := data
		if len(sample) > 256 {
			sample = sample[:256]
		}
		s.log.Debug("[WS] ignore malformed frame", zap.String("conn", conn.id), zap.ByteString("sample", sample), zap.Error(perr))
		return nil
	}

	h := s.disp.GetHandler(f.Event)
	if h == nil {
		s.log.Debug("[WS] no handler", zap.String("conn", conn.id), zap.String("event", f.Event))
		return nil
	}
	return h.Handle(&Context{S: s}, f, conn)
}
