package router

import (
	"github.com/gin-gonic/gin"

	"orvex/internal/handler"
	"orvex/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
// ingestionH is nil when the audit log is disabled; its routes are
// simply not registered.
func Setup(
	allowedOrigins []string,
	extractH *handler.ExtractHandler,
	ingestionH *handler.IngestionHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.POST("/extract-order", extractH.Extract)

	if ingestionH != nil {
		ingestions := r.Group("/ingestions")
		ingestions.GET("", ingestionH.List)
		ingestions.GET("/export", ingestionH.Export)
		ingestions.GET("/:id", ingestionH.GetByID)
	}

	return r
}
