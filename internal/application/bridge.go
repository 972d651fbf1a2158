package application

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/service"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/pkg/safego"
)

// Bridge is the cloud's inbound half of the pipeline (§4.6): it
// subscribes to every device in a fleet via wildcard filters, classifies
// each inbound message, and applies it to cloud state. Grounded on the
// teacher's application/bridge.go adapter-struct pattern, generalized
// from a single-method adapter to the full four-way classification this
// domain requires.
type Bridge struct {
	fleetID    string
	channel    broker.Channel
	commands   repository.CommandRepository
	telemetry  repository.TelemetryRepository
	heartbeat  *service.HeartbeatMonitor
	reconciler *service.ShadowReconciler
	bus        eventbus.Bus
	logger     *zap.Logger
}

// NewBridge constructs a bridge for one fleet. A cloud node with several
// fleets runs one Bridge per fleet.
func NewBridge(
	fleetID string,
	channel broker.Channel,
	commands repository.CommandRepository,
	telemetry repository.TelemetryRepository,
	heartbeat *service.HeartbeatMonitor,
	reconciler *service.ShadowReconciler,
	bus eventbus.Bus,
	logger *zap.Logger,
) *Bridge {
	return &Bridge{
		fleetID:    fleetID,
		channel:    channel,
		commands:   commands,
		telemetry:  telemetry,
		heartbeat:  heartbeat,
		reconciler: reconciler,
		bus:        bus,
		logger:     logger.With(zap.String("component", "bridge"), zap.String("fleet_id", fleetID)),
	}
}

// Start subscribes to the four wildcard filters and spawns one
// panic-safe ingest loop per filter; each loop runs until ctx is
// cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	subs := []struct {
		filter string
		handle func(context.Context, broker.Message)
	}{
		{broker.WildcardResponseFilter(b.fleetID), b.handleResponse},
		{broker.WildcardHeartbeatFilter(b.fleetID), b.handleHeartbeat},
		{broker.WildcardTelemetryFilter(b.fleetID), b.handleTelemetry},
		{broker.WildcardShadowUpdateFilter(b.fleetID), b.handleReportedShadow},
	}

	for _, s := range subs {
		ch, err := b.channel.Subscribe(ctx, s.filter, broker.QoS1)
		if err != nil {
			return err
		}
		handle := s.handle
		safego.Go(b.logger, "bridge-ingest:"+s.filter, func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					handle(ctx, msg)
				}
			}
		})
	}
	return nil
}

func (b *Bridge) handleResponse(ctx context.Context, msg broker.Message) {
	var resp entity.CommandResponse
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		b.logger.Warn("bridge: malformed response payload", zap.Error(err), zap.String("topic", msg.Topic))
		return
	}
	if err := b.commands.SaveResponse(ctx, &resp); err != nil {
		b.logger.Error("bridge: failed to persist response", zap.Error(err))
		return
	}
	b.bus.Publish(ctx, eventbus.New(eventbus.CommandResponse, resp))
}

func (b *Bridge) handleHeartbeat(ctx context.Context, msg broker.Message) {
	var hb entity.Heartbeat
	if err := json.Unmarshal(msg.Payload, &hb); err != nil {
		b.logger.Warn("bridge: malformed heartbeat payload", zap.Error(err), zap.String("topic", msg.Topic))
		return
	}
	if hb.FleetID == "" {
		hb.FleetID = b.fleetID
	}
	if err := b.heartbeat.Ingest(ctx, &hb); err != nil {
		b.logger.Error("bridge: failed to ingest heartbeat", zap.Error(err), zap.String("device_id", hb.DeviceID))
	}
}

func (b *Bridge) handleTelemetry(ctx context.Context, msg broker.Message) {
	var reading entity.TelemetryReading
	if err := json.Unmarshal(msg.Payload, &reading); err != nil {
		b.logger.Warn("bridge: malformed telemetry payload", zap.Error(err), zap.String("topic", msg.Topic))
		return
	}
	if reading.Time.IsZero() {
		reading.Time = time.Now()
	}
	if err := b.telemetry.Append(ctx, &reading); err != nil {
		b.logger.Error("bridge: failed to persist telemetry", zap.Error(err))
		return
	}
	b.bus.Publish(ctx, eventbus.New(eventbus.TelemetryIngested, map[string]interface{}{
		"device_id": reading.DeviceID,
		"source":    reading.Source,
		"metric":    reading.MetricName,
	}))
}

// reportedShadowPayload is the wire shape a device publishes on its
// shadow/update topic: a partial patch plus the shadow name it targets.
type reportedShadowPayload struct {
	DeviceID   string                 `json:"device_id"`
	ShadowName string                 `json:"shadow_name"`
	Reported   map[string]interface{} `json:"reported"`
}

func (b *Bridge) handleReportedShadow(ctx context.Context, msg broker.Message) {
	var payload reportedShadowPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		b.logger.Warn("bridge: malformed shadow update payload", zap.Error(err), zap.String("topic", msg.Topic))
		return
	}

	delta, err := b.reconciler.ApplyReported(ctx, payload.DeviceID, payload.ShadowName, payload.Reported)
	if err != nil {
		b.logger.Error("bridge: failed to apply reported shadow", zap.Error(err))
		return
	}
	b.bus.Publish(ctx, eventbus.New(eventbus.ShadowUpdated, map[string]interface{}{
		"device_id":   payload.DeviceID,
		"shadow_name": payload.ShadowName,
	}))

	if delta == nil {
		return // converged — §4.7 "empty delta ⇒ no emission, no broadcast"
	}
	deltaBytes, err := json.Marshal(delta)
	if err != nil {
		b.logger.Error("bridge: failed to marshal shadow delta", zap.Error(err))
		return
	}
	topic := broker.ShadowDeltaTopic(b.fleetID, payload.DeviceID)
	if err := b.channel.Publish(ctx, topic, deltaBytes, broker.QoS1); err != nil {
		b.logger.Warn("bridge: failed to publish shadow delta", zap.Error(err))
	}
}
