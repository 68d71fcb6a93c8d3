package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"PPCommunity/tools/errs"

	"github.com/gin-gonic/gin"
)

// context keys, read by the route handlers
const (
	PPCtxAuthKey = "authorization" // string, raw token
	PPCtxUserKey = "userId"        // string, verified subject
)

// Verifier maps a token to the user it was issued for.
type Verifier interface {
	Verify(token string) (string, error)
}

type Options struct {
	HeaderToken               string // header to read, default "authorization"
	EnableAuthorizationBearer bool   // also accept "Authorization: Bearer", default true
	Verifier                  Verifier
}

func DefaultOptions(v Verifier) *Options {
	return &Options{
		HeaderToken:               PPCtxAuthKey,
		EnableAuthorizationBearer: true,
		Verifier:                  v,
	}
}

// Middleware rejects requests without a valid token with 401 and stores the
// token and its subject in the gin context otherwise.
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions(nil)
	}
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request, opts)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail("missing token"))
			return
		}
		if opts.Verifier == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail("no verifier"))
			return
		}
		userID, err := opts.Verifier.Verify(token)
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail("invalid token"))
			return
		}

		c.Set(PPCtxAuthKey, token)
		c.Set(PPCtxUserKey, userID)
		c.Next()
	}
}

// ServiceToken guards collaborator-only routes with a static shared secret.
// End-user tokens never match it. An empty secret refuses every request.
func ServiceToken(secret string) gin.HandlerFunc {
	opts := DefaultOptions(nil)
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail("internal token not configured"))
			return
		}
		got := TokenFromRequest(c.Request, opts)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail("invalid service token"))
			return
		}
		c.Next()
	}
}

// TokenFromRequest reads the configured header, falling back to
// "Authorization: Bearer xxx".
func TokenFromRequest(r *http.Request, opts *Options) string {
	token := strings.TrimSpace(r.Header.Get(opts.HeaderToken))
	if opts.EnableAuthorizationBearer {
		if authz := strings.TrimSpace(r.Header.Get("Authorization")); len(authz) > 7 &&
			strings.EqualFold(authz[:7], "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	return token
}

// UserID returns the subject stored by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(PPCtxUserKey)
}
