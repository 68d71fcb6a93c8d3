package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PPCommunity/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(devLogin bool) (*gin.Engine, *security.JWTVerifier) {
	gin.SetMode(gin.TestMode)
	v := security.NewJWTVerifier(security.DefaultOptions([]byte("test-secret")))
	r := gin.New()
	Register(r, v, devLogin)
	return r, v
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	r, v := newRouter(true)

	w := post(r, `{"userId":" alice "}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res LoginResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "alice", res.UserID)
	assert.Greater(t, res.ExpireAt, time.Now().Unix())

	user, err := v.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestLoginRejects(t *testing.T) {
	r, _ := newRouter(true)
	assert.Equal(t, http.StatusBadRequest, post(r, `{"userId":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, `not json`).Code)

	off, _ := newRouter(false)
	w := post(off, `{"userId":"alice"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"msg":"not found"}`, w.Body.String())
}
