package routes

import (
	"routelink/internal/controllers"

	"github.com/gin-gonic/gin"
)

func WebSocketRoutes(r *gin.Engine, h *controllers.Handler) {
	r.GET("/ws", h.HandleEventsWebSocket)
}
