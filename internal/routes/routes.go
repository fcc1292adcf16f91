package routes

import (
	"io"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"routelink/internal/controllers"
	"routelink/internal/middleware"
)

// SetupRouter wires every endpoint. accessLog receives one line per request;
// pass nil to disable it.
func SetupRouter(h *controllers.Handler, tokens *middleware.Tokens, accessLog io.Writer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if accessLog != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithWriter(accessLog),
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/ws"}),
		))
	}
	r.Use(middleware.Identify(tokens))

	AuthRoutes(r, h)
	CalendarRoutes(r, h)
	LinkRoutes(r, h)
	WebSocketRoutes(r, h)

	return r
}
