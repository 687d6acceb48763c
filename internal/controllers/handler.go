package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier_ledger/internal/ledger"
	"courier_ledger/internal/logger"
	"courier_ledger/internal/middleware"
)

// Handler serves the admin and driver APIs over one Registry and Ledger.
type Handler struct {
	registry     *ledger.Registry
	ledger       *ledger.Ledger
	tokens       *middleware.Tokens
	adminKeyHash []byte
}

func NewHandler(registry *ledger.Registry, l *ledger.Ledger, tokens *middleware.Tokens, adminKeyHash []byte) *Handler {
	return &Handler{registry: registry, ledger: l, tokens: tokens, adminKeyHash: adminKeyHash}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps ledger errors onto HTTP statuses. Store failures are
// logged with their cause and answered with a generic message.
func respondError(c *gin.Context, funcName string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrInsufficientBalance):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInactiveDriver):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInvalidDriver),
		errors.Is(err, ledger.ErrInvalidType),
		errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		cause := err
		var se *ledger.StoreError
		if errors.As(err, &se) {
			cause = fmt.Errorf("%s: %w", se.Op, se.Err)
		}
		logger.LogError("controllers", funcName, c.Request.Method+" "+c.FullPath(), c.Params, cause)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
