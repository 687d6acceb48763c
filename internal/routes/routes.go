package routes

import (
	"io"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"courier_ledger/internal/controllers"
	"courier_ledger/internal/middleware"
)

// SetupRouter wires every route. accessLog receives one line per request;
// nil disables request logging.
func SetupRouter(h *controllers.Handler, tokens *middleware.Tokens, accessLog io.Writer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if accessLog != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithWriter(accessLog),
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/health"}),
		))
	}
	r.Use(middleware.CORS())

	r.GET("/health", h.Health)
	AuthRoutes(r, h)
	AdminRoutes(r, h, tokens)
	DriverRoutes(r, h, tokens)

	return r
}
