package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/application/usecase"
)

// ShadowHandler covers the shadow read/desired-write routes (§6). Setting
// desired state needs the device's fleet ID, which the route path does
// not carry, so it is looked up from the device use case before
// publishing.
type ShadowHandler struct {
	shadows *usecase.ShadowUseCase
	devices *usecase.DeviceUseCase
	logger  *zap.Logger
}

func NewShadowHandler(shadows *usecase.ShadowUseCase, devices *usecase.DeviceUseCase, logger *zap.Logger) *ShadowHandler {
	return &ShadowHandler{shadows: shadows, devices: devices, logger: logger}
}

// ListShadowNames handles GET /api/v1/devices/{id}/shadows.
func (h *ShadowHandler) ListShadowNames(c *gin.Context) {
	names, err := h.shadows.ListNames(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list shadow names", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list shadow names"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shadows": names})
}

// GetShadow handles GET /api/v1/devices/{id}/shadows/{name}.
func (h *ShadowHandler) GetShadow(c *gin.Context) {
	state, delta, err := h.shadows.Get(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		h.logger.Error("failed to fetch shadow", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch shadow"})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shadow not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shadow": state, "delta": delta})
}

type setDesiredRequest struct {
	Desired map[string]interface{} `json:"desired" binding:"required"`
}

// SetDesired handles PUT /api/v1/devices/{id}/shadows/{name}/desired.
func (h *ShadowHandler) SetDesired(c *gin.Context) {
	deviceID := c.Param("id")
	shadowName := c.Param("name")

	var req setDesiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.devices.Get(c.Request.Context(), deviceID)
	if err != nil {
		h.logger.Error("failed to resolve device fleet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve device"})
		return
	}
	if device == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}

	state, delta, err := h.shadows.SetDesired(c.Request.Context(), device.FleetID, deviceID, shadowName, req.Desired)
	if err != nil {
		h.logger.Warn("failed to set desired shadow state", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"shadow": state, "delta": delta})
}
