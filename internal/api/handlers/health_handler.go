package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/parcel-pickup/internal/api/dto"
	"github.com/gocomet/parcel-pickup/pkg/logger"
)

// Health handles GET /health and GET /api/health
func (h *Handlers) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.Version,
	}

	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			h.Logger.Error("Health check failed", logger.Err(err))
			resp.Status = "unhealthy"
			resp.Error = "storage unavailable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}
