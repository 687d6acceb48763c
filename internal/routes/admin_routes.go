package routes

import (
	"github.com/gin-gonic/gin"

	"courier_ledger/internal/controllers"
	"courier_ledger/internal/middleware"
)

func AdminRoutes(r *gin.Engine, h *controllers.Handler, tokens *middleware.Tokens) {
	admin := r.Group("/admin")
	admin.Use(tokens.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/drivers", h.CreateDriver)
		admin.GET("/drivers", h.ListDrivers)
		admin.GET("/drivers/search", h.SearchDrivers)
		admin.GET("/drivers/:driver_id", h.GetDriver)
		admin.PUT("/drivers/:driver_id", h.UpdateDriver)
		admin.POST("/drivers/:driver_id/charge", h.ChargeDriver)
		admin.POST("/drivers/:driver_id/deliveries", h.RecordDelivery)
		admin.POST("/drivers/:driver_id/entries", h.ApplyEntry)

		admin.GET("/transactions", h.ListTransactions)
		admin.GET("/reports/totals", h.Totals)
		admin.GET("/reports/deliveries", h.DeliveriesPerDriver)
		admin.GET("/reports/reconcile", h.Reconcile)
		admin.GET("/reports/drivers.xlsx", h.ExportDrivers)
		admin.GET("/reports/transactions.xlsx", h.ExportTransactions)
	}
}
