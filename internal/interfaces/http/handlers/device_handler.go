package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/application/usecase"
)

// DeviceHandler covers the device-provisioning and listing routes (§6).
type DeviceHandler struct {
	uc     *usecase.DeviceUseCase
	logger *zap.Logger
}

func NewDeviceHandler(uc *usecase.DeviceUseCase, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{uc: uc, logger: logger}
}

type provisionDeviceRequest struct {
	DeviceID     string `json:"device_id" binding:"required"`
	FleetID      string `json:"fleet_id" binding:"required"`
	HardwareType string `json:"hardware_type"`
	VIN          string `json:"vin"`
}

// ProvisionDevice handles POST /api/v1/devices.
func (h *DeviceHandler) ProvisionDevice(c *gin.Context) {
	var req provisionDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.uc.Provision(c.Request.Context(), usecase.ProvisionInput{
		DeviceID:     req.DeviceID,
		FleetID:      req.FleetID,
		HardwareType: req.HardwareType,
		VIN:          req.VIN,
	})
	if err != nil {
		h.logger.Warn("failed to provision device", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, device)
}

// ListDevices handles GET /api/v1/devices?fleet_id=.
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	devices, err := h.uc.List(c.Request.Context(), c.Query("fleet_id"))
	if err != nil {
		h.logger.Error("failed to list devices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list devices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// GetDevice handles GET /api/v1/devices/{id}.
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	device, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to fetch device", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch device"})
		return
	}
	if device == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	c.JSON(http.StatusOK, device)
}
