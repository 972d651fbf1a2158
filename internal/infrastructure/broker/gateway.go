package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/pkg/safego"
)

// Gateway is the cloud side of the broker transport substitution
// (DESIGN.md "broker transport substitution"): it accepts one
// WebSocketChannel per connected device and presents the whole fleet as a
// single Channel, so Bridge's wildcard-filter subscriptions see every
// device's traffic regardless of which socket it arrived on. Grounded on
// the teacher's websocket Hub — same register/fan-in shape, generalized
// from "one connection, broadcast to all" to "many connections, routed by
// topic".
type Gateway struct {
	hub *InMemoryChannel

	mu     sync.RWMutex
	conns  map[string]*WebSocketChannel
	logger *zap.Logger
}

// NewGateway builds an empty gateway. Register is called once per
// incoming device connection (typically from an HTTP upgrade handler).
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:    NewInMemoryChannel(),
		conns:  make(map[string]*WebSocketChannel),
		logger: logger,
	}
}

// Register adopts a freshly-upgraded device connection. Any prior
// connection for the same device is closed — a device reconnecting after
// a network blip supersedes its old socket rather than running both.
func (g *Gateway) Register(ctx context.Context, deviceID string, conn *websocket.Conn) {
	wsch := NewWebSocketChannel(conn, g.logger)

	g.mu.Lock()
	if old, ok := g.conns[deviceID]; ok {
		old.Close()
	}
	g.conns[deviceID] = wsch
	g.mu.Unlock()

	inbound, _ := wsch.Subscribe(ctx, "#", QoS1)
	safego.Go(g.logger, "gateway-fanin:"+deviceID, func() {
		defer func() {
			g.mu.Lock()
			if g.conns[deviceID] == wsch {
				delete(g.conns, deviceID)
			}
			g.mu.Unlock()
		}()
		for msg := range inbound {
			if err := g.hub.Publish(ctx, msg.Topic, msg.Payload, msg.QoS); err != nil {
				return
			}
		}
	})
}

// Connected reports whether a device currently has a live socket.
func (g *Gateway) Connected(deviceID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.conns[deviceID]
	return ok
}

// Publish routes a device-targeted topic down that device's socket, or
// fans a fleet-broadcast topic out to every connected device.
func (g *Gateway) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	if deviceID, ok := DeviceIDFromTopic(topic); ok {
		g.mu.RLock()
		conn, found := g.conns[deviceID]
		g.mu.RUnlock()
		if !found {
			return fmt.Errorf("broker: device %q is not connected", deviceID)
		}
		return conn.Publish(ctx, topic, payload, qos)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, conn := range g.conns {
		if err := conn.Publish(ctx, topic, payload, qos); err != nil {
			g.logger.Warn("gateway: broadcast publish failed", zap.String("device_id", id), zap.Error(err))
		}
	}
	return nil
}

// Subscribe always comes off the internal hub, which every registered
// connection's inbound traffic is mirrored into — this is what lets
// wildcard fleet-wide filters (§4.6) see every device at once.
func (g *Gateway) Subscribe(ctx context.Context, topicFilter string, qos QoS) (<-chan Message, error) {
	return g.hub.Subscribe(ctx, topicFilter, qos)
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	for _, c := range g.conns {
		c.Close()
	}
	g.conns = nil
	g.mu.Unlock()
	return g.hub.Close()
}

var _ Channel = (*Gateway)(nil)
