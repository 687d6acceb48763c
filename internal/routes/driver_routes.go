package routes

import (
	"github.com/gin-gonic/gin"

	"courier_ledger/internal/controllers"
	"courier_ledger/internal/middleware"
)

func DriverRoutes(r *gin.Engine, h *controllers.Handler, tokens *middleware.Tokens) {
	driver := r.Group("/driver")
	driver.Use(tokens.RequireRole(middleware.RoleDriver))
	{
		driver.GET("/me", h.Me)
		driver.POST("/deliveries", h.MyDelivery)
		driver.GET("/transactions", h.MyTransactions)
	}
}
