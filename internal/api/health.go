package api

import (
	"net/http"
	"runtime"
	"time"

	"newsflow/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// HealthController reports component status
type HealthController struct {
	checker *health.Checker
	version string
	started time.Time
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.Checker, version string) *HealthController {
	return &HealthController{
		checker: checker,
		version: version,
		started: time.Now(),
	}
}

// RegisterRoutes registers both health endpoint paths
func (h *HealthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/api/health", h.Health)
}

// Health runs every check and answers 503 when a critical component is down
func (h *HealthController) Health(ctx *gin.Context) {
	h.checker.RunChecks(ctx.Request.Context())

	status, code := "ok", http.StatusOK
	if !h.checker.IsSystemHealthy() {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	ctx.JSON(code, gin.H{
		"status":     status,
		"version":    h.version,
		"timestamp":  time.Now().Format(time.RFC3339),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"components": h.checker.GetStatus(),
		"memory": gin.H{
			"alloc_mb":  memStats.Alloc / 1024 / 1024,
			"sys_mb":    memStats.Sys / 1024 / 1024,
			"gc_cycles": memStats.NumGC,
		},
	})
}
