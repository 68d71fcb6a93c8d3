package user

import (
	"net/http"
	"strings"
	"time"

	"PPCommunity/tools/errs"

	"github.com/gin-gonic/gin"
)

// Issuer signs a bearer token for a user.
type Issuer interface {
	Issue(userID string) (string, time.Time, error)
}

type LoginReq struct {
	UserID string `json:"userId"`
}

type LoginResp struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	ExpireAt int64  `json:"expireAt"`
}

// HandlerLogin issues a gateway token for any user id. Only mounted in dev
// deployments; real tokens come from the account service.
func HandlerLogin(issuer Issuer, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, errs.ErrNotFound)
			return
		}
		var req LoginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail(err.Error()))
			return
		}
		req.UserID = strings.TrimSpace(req.UserID)
		if req.UserID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrBadRequest.WithDetail("userId required"))
			return
		}

		tok, exp, err := issuer.Issue(req.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, errs.ErrInternal.WithDetail(err.Error()))
			return
		}
		c.JSON(http.StatusOK, LoginResp{Token: tok, UserID: req.UserID, ExpireAt: exp.Unix()})
	}
}
