package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
)

var gatewayUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GatewayHandler upgrades an inbound edge agent connection and hands it
// to the broker Gateway, which is the cloud side of the broker transport
// substitution (DESIGN.md). This stands in for an MQTT broker's TCP
// listener — agents dial this endpoint instead of a message broker port.
type GatewayHandler struct {
	gateway *broker.Gateway
	logger  *zap.Logger
}

func NewGatewayHandler(gateway *broker.Gateway, logger *zap.Logger) *GatewayHandler {
	return &GatewayHandler{gateway: gateway, logger: logger}
}

// Connect handles GET /ws/devices/{device_id} (called by the edge agent
// on startup, per §4.5 "connect broker").
func (h *GatewayHandler) Connect(c *gin.Context) {
	deviceID := c.Param("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}

	conn, err := gatewayUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("gateway: websocket upgrade failed", zap.Error(err), zap.String("device_id", deviceID))
		return
	}

	// Registration outlives this request — the fan-in goroutine it starts
	// must not be cancelled when the upgrade handler returns.
	h.gateway.Register(context.Background(), deviceID, conn)
	h.logger.Info("gateway: device connected", zap.String("device_id", deviceID))
}
