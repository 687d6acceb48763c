package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"courier_ledger/internal/logger"
	"courier_ledger/internal/models"
	"courier_ledger/internal/reports"
)

type amountPayload struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type entryPayload struct {
	Amount *decimal.Decimal       `json:"amount" binding:"required"`
	Type   models.TransactionType `json:"type" binding:"required"`
}

// ChargeDriver credits the driver's balance.
func (h *Handler) ChargeDriver(c *gin.Context) {
	var body amountPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("driver_id")
	balance, err := h.ledger.Charge(c.Request.Context(), id, *body.Amount)
	if err != nil {
		respondError(c, "ChargeDriver", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": id, "balance": balance})
}

// RecordDelivery deducts the delivery fee on the driver's behalf.
func (h *Handler) RecordDelivery(c *gin.Context) {
	h.deliver(c, c.Param("driver_id"))
}

// ApplyEntry posts a raw ledger entry without the delivery policy checks.
func (h *Handler) ApplyEntry(c *gin.Context) {
	var body entryPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("driver_id")
	balance, err := h.ledger.Apply(c.Request.Context(), id, *body.Amount, body.Type)
	if err != nil {
		respondError(c, "ApplyEntry", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": id, "balance": balance})
}

func (h *Handler) deliver(c *gin.Context, driverID string) {
	balance, err := h.ledger.Deliver(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, "Deliver", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": driverID, "fee": h.ledger.Fee(), "balance": balance})
}

// ListTransactions returns the ledger newest first, optionally for one driver.
func (h *Handler) ListTransactions(c *gin.Context) {
	rows, err := h.ledger.History(c.Request.Context(), c.Query("driver_id"))
	if err != nil {
		respondError(c, "ListTransactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}

func (h *Handler) Totals(c *gin.Context) {
	t, err := h.ledger.Totals(c.Request.Context())
	if err != nil {
		respondError(c, "Totals", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) DeliveriesPerDriver(c *gin.Context) {
	counts, err := h.ledger.DeliveriesPerDriver(c.Request.Context())
	if err != nil {
		respondError(c, "DeliveriesPerDriver", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": counts})
}

// Reconcile lists drivers whose balance disagrees with their ledger entries.
func (h *Handler) Reconcile(c *gin.Context) {
	drift, err := h.ledger.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, "Reconcile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consistent": len(drift) == 0, "drift": drift})
}

func (h *Handler) ExportDrivers(c *gin.Context) {
	rows, err := h.registry.ListWithDeliveryCounts(c.Request.Context())
	if err != nil {
		respondError(c, "ExportDrivers", err)
		return
	}
	f, err := reports.DriversWorkbook(rows)
	if err != nil {
		respondError(c, "ExportDrivers", err)
		return
	}
	sendWorkbook(c, "drivers", func() error { return reports.Write(c.Writer, f) })
}

func (h *Handler) ExportTransactions(c *gin.Context) {
	rows, err := h.ledger.History(c.Request.Context(), c.Query("driver_id"))
	if err != nil {
		respondError(c, "ExportTransactions", err)
		return
	}
	f, err := reports.TransactionsWorkbook(rows)
	if err != nil {
		respondError(c, "ExportTransactions", err)
		return
	}
	sendWorkbook(c, "transactions", func() error { return reports.Write(c.Writer, f) })
}

func sendWorkbook(c *gin.Context, name string, write func() error) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", reports.ContentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
	if err := write(); err != nil {
		// headers are already sent
		logger.LogError("controllers", "sendWorkbook", name, nil, err)
	}
}
