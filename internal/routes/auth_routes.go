package routes

import (
	"github.com/gin-gonic/gin"

	"courier_ledger/internal/controllers"
)

func AuthRoutes(r *gin.Engine, h *controllers.Handler) {
	auth := r.Group("/auth")
	{
		auth.POST("/admin", h.AdminLogin)
		auth.POST("/driver", h.DriverLogin)
	}
}
