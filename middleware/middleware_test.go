package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckOrigin(t *testing.T) {
	open := CheckOrigin(nil)
	only := CheckOrigin([]string{"https://app.example/", "http://localhost:3000"})

	cases := []struct {
		origin     string
		open, only bool
	}{
		{"", true, true},
		{"https://app.example", true, true},
		{"HTTPS://APP.EXAMPLE", true, true},
		{"http://localhost:3000", true, true},
		{"https://evil.example", true, false},
		{"null", true, false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.open, open(r), tc.origin)
		assert.Equal(t, tc.only, only(r), tc.origin)
	}
}

func TestManagerChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	var order []string
	m.Add(func(c *gin.Context) { order = append(order, "first") })
	m.Add(Origin([]string{"https://app.example"}))

	r := gin.New()
	r.Use(m.Use())
	r.GET("/ok", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", nil).Code)
	assert.Equal(t, []string{"first", "handler"}, order)

	order = nil
	w := do(r, http.MethodGet, "/ok", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"first"}, order)

	m.Clear()
	order = nil
	do(r, http.MethodGet, "/ok", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, []string{"handler"}, order)
}

// Same layout as the gateway router: AccessLog on the engine, Origin managed.
func TestAccessLogDoesNotBypassOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	m := NewManager()
	m.Add(Origin([]string{"https://good.example"}))

	ran := false
	r := gin.New()
	r.Use(AccessLog(zap.New(core)), m.Use())
	r.POST("/internal/events", func(c *gin.Context) {
		ran = true
		c.Status(http.StatusAccepted)
	})

	w := do(r, http.MethodPost, "/internal/events", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, ran)
	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, http.StatusForbidden, logs.All()[0].ContextMap()["status"])

	w = do(r, http.MethodPost, "/internal/events", map[string]string{"Origin": "https://good.example"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, ran)
	assert.EqualValues(t, http.StatusAccepted, logs.All()[1].ContextMap()["status"])
}

func TestRouteAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := Manager()
	t.Cleanup(mgr.Clear)

	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	GET(r, "/public", ok, RouteOpt{})
	POST(r, "/private", ok, RouteOpt{IsAuth: true})

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/public", nil).Code)
	// no auth middleware configured: fail closed
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/private", nil).Code)

	mgr.SetAuth(func(c *gin.Context) {
		if c.GetHeader("X-Pass") != "yes" {
			c.AbortWithStatus(http.StatusUnauthorized)
		}
	})
	r2 := gin.New()
	POST(r2, "/private", ok, RouteOpt{IsAuth: true})
	assert.Equal(t, http.StatusUnauthorized, do(r2, http.MethodPost, "/private", nil).Code)
	assert.Equal(t, http.StatusOK, do(r2, http.MethodPost, "/private", map[string]string{"X-Pass": "yes"}).Code)
}

func TestRouteInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := Manager()
	t.Cleanup(mgr.Clear)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	// an end-user guard that lets everyone in does not open internal routes
	mgr.SetAuth(func(c *gin.Context) { c.Next() })
	r := gin.New()
	POST(r, "/internal", ok, RouteOpt{IsInternal: true, IsAuth: true})
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/internal", nil).Code)

	mgr.SetInternal(func(c *gin.Context) {
		if c.GetHeader("X-Service") != "yes" {
			c.AbortWithStatus(http.StatusForbidden)
		}
	})
	r2 := gin.New()
	GET(r2, "/internal", ok, RouteOpt{IsInternal: true})
	assert.Equal(t, http.StatusForbidden, do(r2, http.MethodGet, "/internal", nil).Code)
	assert.Equal(t, http.StatusOK, do(r2, http.MethodGet, "/internal", map[string]string{"X-Service": "yes"}).Code)
}
