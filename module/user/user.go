package user

import (
	mid "PPCommunity/middleware"

	"github.com/gin-gonic/gin"
)

// Register mounts the user routes.
func Register(r gin.IRoutes, issuer Issuer, devLogin bool) {
	mid.POST(r, "/login", HandlerLogin(issuer, devLogin), mid.RouteOpt{IsAuth: false})
}
