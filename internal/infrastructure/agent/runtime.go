// Package agent is the edge agent runtime (§4.5): five peer background
// loops — command, shadow-delta and config-update loops, heartbeat
// emitter, shadow reporter — multiplexed over a single broker connection,
// grounded on the teacher's infrastructure/agent process-loop shape
// generalized from a single inference loop to independent loops.
package agent

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	domaintool "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/service"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/config"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/pkg/safego"
)

// AgentVersion is stamped into every heartbeat (§3 Heartbeat fields).
const AgentVersion = "0.1.0"

// DefaultStatusShadowName is the shadow the agent's own reporter writes
// to, distinct from any application-defined shadow (e.g. "firmware")
// that arrives only via cloud-issued shadow deltas.
const DefaultStatusShadowName = "agent_status"

// Runtime owns one edge agent's command loop, heartbeat emitter, and
// shadow reporter (§4.5).
type Runtime struct {
	fleetID  string
	deviceID string

	cfg      *config.AgentConfig
	channel  broker.Channel
	executor *service.Executor
	tools    domaintool.Registry
	logger   *zap.Logger

	shadows   *localShadowStore
	startedAt time.Time

	mu          sync.RWMutex
	lastCommand string
}

// NewRuntime wires a runtime against its broker channel, command
// executor, and tool registry (the registry is only read for its size,
// to populate the status shadow's tool_count field).
func NewRuntime(cfg *config.AgentConfig, channel broker.Channel, executor *service.Executor, tools domaintool.Registry, logger *zap.Logger) *Runtime {
	return &Runtime{
		fleetID:  cfg.FleetID,
		deviceID: cfg.DeviceID,
		cfg:      cfg,
		channel:  channel,
		executor: executor,
		tools:    tools,
		logger:   logger.With(zap.String("component", "agent_runtime"), zap.String("device_id", cfg.DeviceID)),
		shadows:  newLocalShadowStore(),
	}
}

// Start subscribes to the three device-targeted filters plus the fleet
// broadcast filter, then spawns the five background loops (§4.5
// startup sequence). It returns once subscriptions are live; the loops
// themselves run until ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	r.startedAt = time.Now()

	commandCh, err := r.channel.Subscribe(ctx, broker.DeviceCommandFilter(r.fleetID, r.deviceID), broker.QoS1)
	if err != nil {
		return err
	}
	shadowCh, err := r.channel.Subscribe(ctx, broker.DeviceShadowDeltaFilter(r.fleetID, r.deviceID), broker.QoS1)
	if err != nil {
		return err
	}
	configCh, err := r.channel.Subscribe(ctx, broker.DeviceConfigFilter(r.fleetID, r.deviceID), broker.QoS1)
	if err != nil {
		return err
	}
	broadcastCh, err := r.channel.Subscribe(ctx, broker.BroadcastCommandTopic(r.fleetID), broker.QoS1)
	if err != nil {
		return err
	}

	safego.Go(r.logger, "agent-command-loop", func() { r.commandLoop(ctx, commandCh, broadcastCh) })
	safego.Go(r.logger, "agent-shadow-delta-loop", func() { r.shadowDeltaLoop(ctx, shadowCh) })
	safego.Go(r.logger, "agent-config-loop", func() { r.configLoop(ctx, configCh) })
	safego.Go(r.logger, "agent-heartbeat-emitter", func() { r.heartbeatLoop(ctx) })
	safego.Go(r.logger, "agent-shadow-reporter", func() { r.shadowReportLoop(ctx) })

	return nil
}

// commandLoop drains both the device-specific and fleet-broadcast
// command topics, dispatching every envelope through the executor and
// publishing exactly one response each (§4.2 step 3: "no retries").
func (r *Runtime) commandLoop(ctx context.Context, device, broadcast <-chan broker.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-device:
			if !ok {
				return
			}
			r.handleCommand(ctx, msg)
		case msg, ok := <-broadcast:
			if !ok {
				return
			}
			r.handleCommand(ctx, msg)
		}
	}
}

func (r *Runtime) handleCommand(ctx context.Context, msg broker.Message) {
	var env entity.CommandEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		r.logger.Warn("agent: malformed command envelope", zap.Error(err), zap.String("topic", msg.Topic))
		return
	}

	resp := r.executor.Handle(ctx, &env)

	r.mu.Lock()
	r.lastCommand = env.NaturalLanguage
	r.mu.Unlock()

	update := service.ReportedStateUpdate(&env, intentToolName(env.ParsedIntent))
	snapshot := r.shadows.merge(DefaultStatusShadowName, update)
	r.reportShadow(ctx, DefaultStatusShadowName, snapshot)

	payload, err := service.Govern(resp)
	if err != nil {
		r.logger.Error("agent: failed to marshal response", zap.Error(err))
		return
	}
	topic := broker.CommandResponseTopic(r.fleetID, r.deviceID)
	if err := r.channel.Publish(ctx, topic, payload, broker.QoS1); err != nil {
		r.logger.Warn("agent: failed to publish response", zap.Error(err))
	}
}

// intentToolName reports the name carried by a parsed intent (tool name,
// shell command, or reply marker) for the reported-state patch, or empty
// when no intent was available (a parse failure before dispatch).
func intentToolName(intent *entity.ParsedIntent) string {
	if intent == nil {
		return ""
	}
	return intent.Name
}

// shadowDeltaLoop applies every inbound delta to local reported state and
// re-reports immediately to acknowledge (§4.5 "for shadow deltas, merges
// the delta into local reported state and re-reports").
func (r *Runtime) shadowDeltaLoop(ctx context.Context, ch <-chan broker.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleShadowDelta(ctx, msg)
		}
	}
}

func (r *Runtime) handleShadowDelta(ctx context.Context, msg broker.Message) {
	var delta entity.ShadowDelta
	if err := json.Unmarshal(msg.Payload, &delta); err != nil {
		r.logger.Warn("agent: malformed shadow delta", zap.Error(err), zap.String("topic", msg.Topic))
		return
	}

	snapshot := r.shadows.merge(delta.ShadowName, delta.Delta)
	r.reportShadow(ctx, delta.ShadowName, snapshot)
}

// configLoop logs broadcast config updates. The running agent applies no
// config change at runtime (the WatchAgentConfig callback only logs file
// edits), so this loop only observes.
func (r *Runtime) configLoop(ctx context.Context, ch <-chan broker.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.logger.Info("agent: received config update broadcast", zap.Int("bytes", len(msg.Payload)))
		}
	}
}

// heartbeatLoop emits an unsynchronized heartbeat on a fixed ticker (§3,
// §4.5, §9 "Heartbeat and shadow-report emissions are unsynchronized
// across devices and independent of commands").
func (r *Runtime) heartbeatLoop(ctx context.Context) {
	interval := time.Duration(r.cfg.HeartbeatIntervalSecs) * time.Second
	if interval <= 0 {
		interval = config.DefaultHeartbeatIntervalSecs * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.emitHeartbeat(ctx)
		}
	}
}

func (r *Runtime) emitHeartbeat(ctx context.Context) {
	ollamaStatus := "disabled"
	if r.cfg.LocalLLM.Enabled {
		ollamaStatus = "ok"
	}

	hb := entity.Heartbeat{
		DeviceID:     r.deviceID,
		FleetID:      r.fleetID,
		UptimeSecs:   int64(time.Since(r.startedAt).Seconds()),
		OllamaStatus: ollamaStatus,
		CANStatus:    "ok",
		AgentVersion: AgentVersion,
		Timestamp:    time.Now(),
	}
	payload, err := json.Marshal(hb)
	if err != nil {
		r.logger.Error("agent: failed to marshal heartbeat", zap.Error(err))
		return
	}
	topic := broker.HeartbeatTopic(r.fleetID, r.deviceID)
	if err := r.channel.Publish(ctx, topic, payload, broker.QoS0); err != nil {
		r.logger.Warn("agent: failed to publish heartbeat", zap.Error(err))
	}
}

// shadowReportLoop periodically publishes a status snapshot (tool count,
// service status, last-command summary) into DefaultStatusShadowName
// (§4.5 "Shadow reporter").
func (r *Runtime) shadowReportLoop(ctx context.Context) {
	interval := time.Duration(r.cfg.ShadowSyncIntervalSecs) * time.Second
	if interval <= 0 {
		interval = config.DefaultShadowSyncIntervalSecs * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reportStatusSnapshot(ctx)
		}
	}
}

func (r *Runtime) reportStatusSnapshot(ctx context.Context) {
	r.mu.RLock()
	lastCommand := r.lastCommand
	r.mu.RUnlock()

	snapshot := r.shadows.merge(DefaultStatusShadowName, map[string]interface{}{
		"tool_count":     len(r.tools.List()),
		"goroutines":     runtime.NumGoroutine(),
		"last_command":   lastCommand,
		"uptime_secs":    int64(time.Since(r.startedAt).Seconds()),
		"service_status": "running",
	})
	r.reportShadow(ctx, DefaultStatusShadowName, snapshot)
}

func (r *Runtime) reportShadow(ctx context.Context, shadowName string, reported map[string]interface{}) {
	payload, err := json.Marshal(struct {
		DeviceID   string                 `json:"device_id"`
		ShadowName string                 `json:"shadow_name"`
		Reported   map[string]interface{} `json:"reported"`
	}{DeviceID: r.deviceID, ShadowName: shadowName, Reported: reported})
	if err != nil {
		r.logger.Error("agent: failed to marshal shadow report", zap.Error(err))
		return
	}
	topic := broker.ShadowUpdateTopic(r.fleetID, r.deviceID)
	if err := r.channel.Publish(ctx, topic, payload, broker.QoS1); err != nil {
		r.logger.Warn("agent: failed to publish shadow report", zap.Error(err), zap.String("shadow_name", shadowName))
	}
}
