package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AIStatus reports provider availability and the paid spend counter
// GET /ai/status
func (h *Handler) AIStatus(c *gin.Context) {
	status, err := h.AI.Status(c.Request.Context())
	if err != nil {
		h.log.Warn("ai status unavailable", zap.Error(err))
		fail(c, http.StatusServiceUnavailable, "AI_STATUS_UNAVAILABLE", "Spend counter is unavailable")
		return
	}
	respond(c, http.StatusOK, status)
}

// AISpend reports the persisted spend of the current day and month
// GET /ai/spend
func (h *Handler) AISpend(c *gin.Context) {
	report, err := h.AI.Spend(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

// Health reports process, database and spend store liveness
// GET /health
func (h *Handler) Health(c *gin.Context) {
	overall, database, spendStore := "healthy", "healthy", "memory"
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		overall, database = "degraded", "unhealthy"
		status = http.StatusServiceUnavailable
	}

	if h.SpendStore != nil {
		spendStore = "healthy"
		if err := h.SpendStore.Ping(ctx); err != nil {
			h.log.Warn("spend store unreachable", zap.Error(err))
			overall, spendStore = "degraded", "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, gin.H{
		"status":      overall,
		"database":    database,
		"spend_store": spendStore,
		"storage":     h.Properties.StorageEnabled(),
		"timestamp":   time.Now().UTC(),
	})
}
