package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/service"
)

// Pinger is a dependency that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics    *service.MetricsService
	components map[string]Pinger
}

// NewMetricsHandler constructs a metrics handler. Components are probed by Ready.
func NewMetricsHandler(metrics *service.MetricsService, components map[string]Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, components: components}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness with dependency status
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthStatus
// @Failure 503 {object} models.HealthStatus
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := models.HealthStatus{Status: "ok", Components: make(map[string]string, len(h.components))}
	code := http.StatusOK
	for name, component := range h.components {
		if component == nil {
			status.Components[name] = "disabled"
			continue
		}
		if err := component.Ping(ctx); err != nil {
			status.Components[name] = "down: " + err.Error()
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status.Components[name] = "up"
	}
	if h.metrics != nil {
		snapshot := h.metrics.Snapshot()
		status.Metrics = &snapshot
	}
	c.JSON(code, status)
}
