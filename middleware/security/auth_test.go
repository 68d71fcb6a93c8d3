package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	jwtsec "PPCommunity/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(tok string) (string, error) {
	if u, ok := v[tok]; ok {
		return u, nil
	}
	return "", errors.New("unknown token")
}

func serve(t *testing.T, opts *Options, header, value string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.GET("/me", Middleware(opts), func(c *gin.Context) {
		seen = UserID(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestMiddleware(t *testing.T) {
	opts := DefaultOptions(staticVerifier{"tok-a": "alice", "tok-empty": ""})

	cases := []struct {
		name         string
		header, val  string
		status       int
		expectedUser string
	}{
		{"bearer", "Authorization", "Bearer tok-a", http.StatusNoContent, "alice"},
		{"bearer lower case", "Authorization", "bearer tok-a", http.StatusNoContent, "alice"},
		{"raw header", "Authorization", "tok-a", http.StatusNoContent, "alice"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"bearer without token", "Authorization", "Bearer ", http.StatusUnauthorized, ""},
		{"unknown", "Authorization", "Bearer forged", http.StatusUnauthorized, ""},
		{"empty subject", "Authorization", "Bearer tok-empty", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, user := serve(t, opts, tc.header, tc.val)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.expectedUser, user)
			if tc.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"code":401`)
			}
		})
	}
}

func TestMiddlewareWithoutVerifier(t *testing.T) {
	w, _ := serve(t, nil, "Authorization", "Bearer tok-a")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userTok, _, err := jwtsec.NewJWTVerifier(jwtsec.DefaultOptions([]byte("user-secret-user-secret-user-sec"))).Issue("mallory")
	require.NoError(t, err)

	call := func(secret, authz string) (int, bool) {
		ran := false
		r := gin.New()
		r.POST("/internal/events", ServiceToken(secret), func(c *gin.Context) {
			ran = true
			c.Status(http.StatusAccepted)
		})
		req := httptest.NewRequest(http.MethodPost, "/internal/events", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code, ran
	}

	code, ran := call("svc-secret", "Bearer svc-secret")
	assert.Equal(t, http.StatusAccepted, code)
	assert.True(t, ran)

	for name, authz := range map[string]string{
		"end-user jwt": "Bearer " + userTok,
		"missing":      "",
		"prefix":       "Bearer svc-secre",
		"other":        "Bearer svc-secret2",
	} {
		code, ran := call("svc-secret", authz)
		assert.Equal(t, http.StatusUnauthorized, code, name)
		assert.False(t, ran, name)
	}

	// unconfigured secret refuses even an empty bearer
	code, ran = call("", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, ran)
}
