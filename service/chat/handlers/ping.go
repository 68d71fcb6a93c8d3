package handlers

import (
	"PPCommunity/service/chat"
)

// PingHandler answers {"event":"ping"} with {"event":"pong"} and renews the
// connection's presence entry.
type PingHandler struct{}

func NewPingHandler() chat.Handler { return &PingHandler{} }

func (h *PingHandler) Event() string { return chat.EventPing }

func (h *PingHandler) Handle(ctx *chat.Context, _ *chat.Envelope, conn *chat.Connection) error {
	conn.Send(chat.PongFrame())
	ctx.S.TouchPresence(conn)
	return nil
}
