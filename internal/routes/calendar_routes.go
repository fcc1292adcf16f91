package routes

import (
	"routelink/internal/controllers"
	"routelink/internal/middleware"

	"github.com/gin-gonic/gin"
)

func CalendarRoutes(r *gin.Engine, h *controllers.Handler) {
	r.GET("/next_slot", h.NextSlot)
	r.GET("/holidays", h.Holidays)
	r.GET("/calendar/:date", h.Calendar)
	r.GET("/route_count", h.RouteCount)
	r.GET("/routes/:id", h.GetRoute)

	routes := r.Group("/routes")
	routes.Use(middleware.RequireAuth())
	{
		routes.POST("", h.CreateRoute)
		routes.PATCH("/:id", h.UpdateRoute)
		routes.DELETE("/:id", h.DeleteRoute)
		routes.POST("/:id/dates", h.ScheduleRoute)
	}
}
