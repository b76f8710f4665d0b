package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leavedesk/internal/services"
)

// HealthHandler serves the health and metrics endpoints.
type HealthHandler struct {
	healthService services.HealthServicer
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(healthService services.HealthServicer) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// Health reports whether the database answers
// @Summary     Health check
// @Tags        ops
// @Produce     json
// @Success     200 {object} map[string]string "Healthy"
// @Failure     503 {object} map[string]string "Database unavailable"
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.healthService.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Detailed reports database latency, row counts and integrations
// @Summary     Detailed health check
// @Tags        ops
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.HealthReport "Health report"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Database unavailable"
// @Router      /health/detailed [get]
func (h *HealthHandler) Detailed(c *gin.Context) {
	report, err := h.healthService.Detailed(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Metrics reports usage counters
// @Summary     Metrics
// @Tags        ops
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.Metrics "Counters"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Database unavailable"
// @Router      /metrics [get]
func (h *HealthHandler) Metrics(c *gin.Context) {
	m, err := h.healthService.Metrics(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
