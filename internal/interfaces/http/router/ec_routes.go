package router

import (
	"github.com/gin-gonic/gin"

	"github.com/merchportal/backend/internal/interfaces/http/handler"
)

// ECRoutesConfig holds the middleware guarding the EC export routes
type ECRoutesConfig struct {
	// WriteAuth guards the export trigger
	WriteAuth gin.HandlerFunc
	// ReadAuth guards the run history
	ReadAuth gin.HandlerFunc
	// ExportLimiter throttles the export trigger per client
	ExportLimiter gin.HandlerFunc
}

// NewECRoutes builds the "ec" domain group:
//
//	POST /ec/shop/:shopId/generate
//	GET  /ec/runs
//	GET  /ec/runs/:id
func NewECRoutes(h *handler.ExportHandler, cfg ECRoutesConfig) *DomainGroup {
	ec := NewDomainGroup("ec", "/ec")

	generate := compact(cfg.ExportLimiter, cfg.WriteAuth, h.Generate)
	ec.POST("/shop/:shopId/generate", generate...)

	runs := ec.Group("runs", "/runs")
	if cfg.ReadAuth != nil {
		runs.Use(cfg.ReadAuth)
	}
	runs.GET("", h.ListRuns)
	runs.GET("/:id", h.GetRun)

	return ec
}

// RegisterHealth mounts the probes at the engine root
func RegisterHealth(engine *gin.Engine, h *handler.HealthHandler) {
	engine.GET("/health", h.Live)
	engine.GET("/ready", h.Ready)
}

func compact(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
