package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"launchpad/internal/accumulator"
	"launchpad/internal/engine"
	"launchpad/internal/observability"
)

// NewRouter builds the gin engine with every route bound. Liveness and
// readiness are served here alongside the settlement API so a single port
// covers probes and traffic.
func NewRouter(
	resident, detached *engine.Engine,
	tree *accumulator.Tree,
	health *observability.HealthChecker,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := NewHandler(resident, detached, tree, log)

	r.POST("/platform/initialize", h.handleInitialize)
	r.PATCH("/platform/fee", h.handleUpdateFee)
	r.GET("/platform", h.handleGetPlatform)

	r.POST("/sales", h.handleLaunch)
	r.GET("/sales/:asset", h.handleGetSale)
	r.GET("/sales/:asset/witness", h.handleGetWitness)
	r.POST("/sales/:asset/purchases", h.handlePurchase)
	r.POST("/sales/:asset/close", h.handleClose)

	r.GET("/accumulator/root", h.handleGetRoot)

	r.GET("/healthz", gin.WrapF(health.LivenessHandler))
	r.GET("/readyz", gin.WrapF(health.ReadinessHandler))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return r
}
