package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"courier_ledger/internal/ledger"
)

// driverPayload is the admin form for registering or editing a driver.
// IsActive defaults to true on create and to the stored value on update.
type driverPayload struct {
	DriverID  string `json:"driver_id"`
	Name      string `json:"name" binding:"required"`
	BikePlate string `json:"bike_plate"`
	WhatsApp  string `json:"whatsapp"`
	Notes     string `json:"notes"`
	IsActive  *bool  `json:"is_active"`
}

func (p driverPayload) input(active bool) ledger.DriverInput {
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return ledger.DriverInput{
		DriverID:  p.DriverID,
		Name:      p.Name,
		BikePlate: p.BikePlate,
		WhatsApp:  p.WhatsApp,
		Notes:     p.Notes,
		IsActive:  active,
	}
}

// CreateDriver registers a new driver with a zero balance.
func (h *Handler) CreateDriver(c *gin.Context) {
	var body driverPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.registry.Register(c.Request.Context(), body.input(true))
	if err != nil {
		respondError(c, "CreateDriver", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"driver": d})
}

// UpdateDriver replaces the driver's details. The balance is not editable here.
func (h *Handler) UpdateDriver(c *gin.Context) {
	var body driverPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("driver_id")
	current, err := h.registry.Get(ctx, id)
	if err != nil {
		respondError(c, "UpdateDriver", err)
		return
	}

	d, err := h.registry.UpdateDetails(ctx, id, body.input(current.IsActive))
	if err != nil {
		respondError(c, "UpdateDriver", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver": d})
}

func (h *Handler) GetDriver(c *gin.Context) {
	d, err := h.registry.Get(c.Request.Context(), c.Param("driver_id"))
	if err != nil {
		respondError(c, "GetDriver", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver": d, "status": d.StatusLabel()})
}

// ListDrivers returns the admin table: every driver with its delivery count.
func (h *Handler) ListDrivers(c *gin.Context) {
	rows, err := h.registry.ListWithDeliveryCounts(c.Request.Context())
	if err != nil {
		respondError(c, "ListDrivers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": rows})
}

// SearchDrivers looks drivers up by id, whatsapp or name. With all=true every
// match is returned, otherwise only the best one.
func (h *Handler) SearchDrivers(c *gin.Context) {
	q := c.Query("q")
	all, _ := strconv.ParseBool(c.DefaultQuery("all", "false"))

	if all {
		matches, err := h.registry.SearchAll(c.Request.Context(), q)
		if err != nil {
			respondError(c, "SearchDrivers", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"drivers": matches})
		return
	}

	d, err := h.registry.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, "SearchDrivers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver": d})
}
