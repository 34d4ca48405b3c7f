package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ops-api/internal/service"
	"github.com/noah-isme/school-ops-api/pkg/jobs"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type queueStatter interface {
	Stats() jobs.QueueStats
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	rollups queueStatter
}

// NewMetricsHandler constructs a metrics handler. db and rollups may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, rollups queueStatter) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, rollups: rollups}
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

// Ready reports whether the database answers and how much roll-up work is queued.
func (h *MetricsHandler) Ready(c *gin.Context) {
	payload := gin.H{"status": "ready"}
	if h.rollups != nil {
		payload["rollup_queue"] = h.rollups.Stats()
	}
	if h.metrics != nil {
		payload["metrics"] = h.metrics.Snapshot()
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			payload["status"] = "unavailable"
			payload["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, payload)
			return
		}
	}
	c.JSON(http.StatusOK, payload)
}
