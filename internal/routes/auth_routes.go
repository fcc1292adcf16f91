package routes

import (
	"routelink/internal/controllers"

	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine, h *controllers.Handler) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/me", h.Me)
	r.POST("/logout", h.Logout)
}
