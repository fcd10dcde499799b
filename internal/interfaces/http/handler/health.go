package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchportal/backend/internal/infrastructure/logger"
	"github.com/merchportal/backend/internal/interfaces/http/dto"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	service   string
	version   string
	checks    map[string]HealthCheck
	timeout   time.Duration
	startTime time.Time
}

// HealthStatus is the body of a health response
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(service, version string) *HealthHandler {
	return &HealthHandler{
		service:   service,
		version:   version,
		checks:    make(map[string]HealthCheck),
		timeout:   3 * time.Second,
		startTime: time.Now(),
	}
}

// AddCheck registers a readiness check
func (h *HealthHandler) AddCheck(name string, check HealthCheck) *HealthHandler {
	h.checks[name] = check
	return h
}

// Live reports that the process is up.
//
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, h.status("healthy", nil))
}

// Ready runs every registered check and answers 503 when any fails.
//
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.GetGinLogger(c).Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = "unhealthy: " + err.Error()
			healthy = false
			continue
		}
		results[name] = "healthy"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Message: "Service not ready",
			Data:    h.status("unhealthy", results),
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeUnavailable, Message: "Service not ready", RequestID: getRequestID(c)},
		})
		return
	}
	h.Success(c, h.status("healthy", results))
}

func (h *HealthHandler) status(status string, checks map[string]string) HealthStatus {
	return HealthStatus{
		Status:    status,
		Service:   h.service,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
}
