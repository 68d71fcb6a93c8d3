package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	mid "PPCommunity/middleware"
	"PPCommunity/service/storage"
	"PPCommunity/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PublishReq struct {
	UserIDs []string        `json:"userIds"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

type PresenceResp struct {
	UserID      string            `json:"userId"`
	Online      bool              `json:"online"`
	Connections int               `json:"connections"`
	Sessions    []storage.Session `json:"sessions,omitempty"`
}

// LocalPresence counts a user's connections on this gateway.
type LocalPresence interface {
	Online(userID string) int
}

// ClusterPresence lists a user's sessions on every gateway.
type ClusterPresence interface {
	Sessions(ctx context.Context, userID string) ([]storage.Session, error)
}

type Handler struct {
	n       *Notifier
	local   LocalPresence
	cluster ClusterPresence // optional
	log     *zap.Logger
}

func NewHandler(n *Notifier, local LocalPresence, cluster ClusterPresence, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{n: n, local: local, cluster: cluster, log: log}
}

// Register mounts the collaborator routes. Both need the service credential;
// end-user tokens are refused.
func (h *Handler) Register(r gin.IRoutes) {
	mid.POST(r, "/internal/events", h.HandlerPublish, mid.RouteOpt{IsInternal: true})
	mid.GET(r, "/presence/:userId", h.HandlerPresence, mid.RouteOpt{IsInternal: true})
}

// HandlerPublish answers 202 once the event is queued; delivery is not
// confirmed.
func (h *Handler) HandlerPublish(c *gin.Context) {
	var req PublishReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	req.Event = strings.TrimSpace(req.Event)
	users := req.UserIDs[:0]
	for _, u := range req.UserIDs {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}
	switch {
	case req.Event == "":
		c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail("event required"))
		return
	case len(users) == 0:
		c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail("userIds required"))
		return
	}

	var payload any
	if len(req.Data) > 0 {
		payload = req.Data
	}
	h.n.Publish(users, req.Event, payload)
	h.log.Debug("[Notify] published", zap.String("event", req.Event), zap.Int("users", len(users)))
	c.JSON(http.StatusAccepted, gin.H{"event": req.Event, "users": len(users)})
}

func (h *Handler) HandlerPresence(c *gin.Context) {
	userID := c.Param("userId")
	resp := PresenceResp{UserID: userID, Connections: h.local.Online(userID)}
	resp.Online = resp.Connections > 0

	if h.cluster != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sessions, err := h.cluster.Sessions(ctx, userID)
		if err != nil {
			h.log.Warn("[Notify] cluster presence failed", zap.String("user", userID), zap.Error(err))
		} else {
			resp.Sessions = sessions
			resp.Online = resp.Online || len(sessions) > 0
		}
	}
	c.JSON(http.StatusOK, resp)
}
