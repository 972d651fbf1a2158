package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/application/usecase"
)

// DefaultTelemetryLimit bounds an unspecified ?limit= query.
const DefaultTelemetryLimit = 100

// TelemetryHandler covers GET /api/v1/devices/{id}/telemetry.
type TelemetryHandler struct {
	uc     *usecase.TelemetryQueryUseCase
	logger *zap.Logger
}

func NewTelemetryHandler(uc *usecase.TelemetryQueryUseCase, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{uc: uc, logger: logger}
}

func (h *TelemetryHandler) ListTelemetry(c *gin.Context) {
	limit := DefaultTelemetryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	readings, err := h.uc.List(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.logger.Error("failed to list telemetry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list telemetry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"telemetry": readings})
}
