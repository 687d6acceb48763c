package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"courier_ledger/internal/middleware"
)

// AdminLogin exchanges the admin key for an admin token.
func (h *Handler) AdminLogin(c *gin.Context) {
	var body struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.adminKeyHash, []byte(body.Key)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
		return
	}

	token, err := h.tokens.GenerateToken(middleware.RoleAdmin, middleware.RoleAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "role": middleware.RoleAdmin})
}

// DriverLogin issues a driver token for a registered driver_id.
func (h *Handler) DriverLogin(c *gin.Context) {
	var body struct {
		DriverID string `json:"driver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.registry.Get(c.Request.Context(), strings.TrimSpace(body.DriverID))
	if err != nil {
		respondError(c, "DriverLogin", err)
		return
	}

	token, err := h.tokens.GenerateToken(d.DriverID, middleware.RoleDriver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "role": middleware.RoleDriver, "driver": d})
}
