package routes

import (
	"routelink/internal/controllers"
	"routelink/internal/middleware"

	"github.com/gin-gonic/gin"
)

func LinkRoutes(r *gin.Engine, h *controllers.Handler) {
	r.GET("/routes/:id/links", h.RouteLinks)
	r.POST("/routes/:id/join", middleware.RequireAuth(), h.JoinRoute)
	r.DELETE("/links/:id", middleware.RequireAuth(), h.DeleteLink)
}
