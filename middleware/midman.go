package middleware

import (
	"net/http"
	"sync"

	"PPCommunity/tools/errs"

	"github.com/gin-gonic/gin"
)

// process-wide manager
var (
	globalMgr *MiddlewareManager
	once      sync.Once
)

// MiddlewareManager holds the filters mounted in front of every route and the
// guards used by RouteOpt.
type MiddlewareManager struct {
	mu       sync.RWMutex
	mids     []gin.HandlerFunc
	auth     gin.HandlerFunc
	internal gin.HandlerFunc
}

func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Manager returns the process manager, created on first use.
func Manager() *MiddlewareManager {
	once.Do(func() {
		if globalMgr == nil {
			globalMgr = NewManager()
		}
	})
	return globalMgr
}

// Add appends a filter. Filters run in order and stop a request by aborting.
// They must not call c.Next: anything that wraps the handler, like AccessLog,
// goes on the engine with r.Use.
func (m *MiddlewareManager) Add(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h)
}

// SetAuth sets the end-user guard for IsAuth routes.
func (m *MiddlewareManager) SetAuth(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = h
}

// SetInternal sets the service guard for IsInternal routes.
func (m *MiddlewareManager) SetInternal(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.internal = h
}

// Auth returns the end-user guard. Unset means every request is refused.
func (m *MiddlewareManager) Auth() gin.HandlerFunc {
	m.mu.RLock()
	h := m.auth
	m.mu.RUnlock()
	return orDeny(h, "auth not configured")
}

// Internal returns the service guard. Unset means every request is refused.
func (m *MiddlewareManager) Internal() gin.HandlerFunc {
	m.mu.RLock()
	h := m.internal
	m.mu.RUnlock()
	return orDeny(h, "internal auth not configured")
}

func orDeny(h gin.HandlerFunc, detail string) gin.HandlerFunc {
	if h != nil {
		return h
	}
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail(detail))
	}
}

// Clear drops every filter and guard.
func (m *MiddlewareManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = nil
	m.auth = nil
	m.internal = nil
}

// Use returns the handler to mount on the engine.
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]gin.HandlerFunc{}, m.mids...) // snapshot
		m.mu.RUnlock()

		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
