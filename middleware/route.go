package middleware

import (
	"github.com/gin-gonic/gin"
)

// RouteOpt picks the guard put in front of a route. IsInternal wins over
// IsAuth.
type RouteOpt struct {
	IsAuth     bool // end-user token
	IsInternal bool // service credential
}

func handlers(handler gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	switch {
	case opt.IsInternal:
		return []gin.HandlerFunc{Manager().Internal(), handler}
	case opt.IsAuth:
		return []gin.HandlerFunc{Manager().Auth(), handler}
	}
	return []gin.HandlerFunc{handler}
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.POST(path, handlers(handler, opt)...)
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.GET(path, handlers(handler, opt)...)
}
