package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/service"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/persistence"
)

func bridgeTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestBridge(t *testing.T) (broker.Channel, *persistence.MemoryCommandRepository, *persistence.MemoryTelemetryRepository, eventbus.Bus) {
	t.Helper()
	logger := bridgeTestLogger()
	channel := broker.NewInMemoryChannel()
	commands := persistence.NewMemoryCommandRepository()
	telemetry := persistence.NewMemoryTelemetryRepository()
	devices := persistence.NewMemoryDeviceRepository()
	heartbeats := persistence.NewMemoryHeartbeatRepository()
	bus := eventbus.NewInMemoryBus(logger, eventbus.DefaultCapacity)

	heartbeatMonitor := service.NewHeartbeatMonitor(devices, heartbeats, bus, time.Second, logger)
	reconciler := service.NewShadowReconciler(persistence.NewMemoryShadowRepository())

	b := NewBridge("fleet-1", channel, commands, telemetry, heartbeatMonitor, reconciler, bus, logger)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("failed to start bridge: %v", err)
	}
	return channel, commands, telemetry, bus
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestBridge_HandleResponse_PersistsAndPublishes(t *testing.T) {
	channel, commands, _, bus := newTestBridge(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen eventbus.Event
	got := make(chan struct{}, 1)
	bus.Subscribe(eventbus.CommandResponse, func(ctx context.Context, event eventbus.Event) {
		mu.Lock()
		seen = event
		mu.Unlock()
		got <- struct{}{}
	})

	resp := entity.CommandResponse{
		CommandID:     "cmd-1",
		CorrelationID: "corr-1",
		DeviceID:      "veh-1",
		Status:        entity.StatusCompleted,
		RespondedAt:   time.Now(),
	}
	payload, _ := json.Marshal(resp)
	topic := broker.CommandResponseTopic("fleet-1", "veh-1")
	if err := channel.Publish(ctx, topic, payload, broker.QoS1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool {
		stored, _ := commands.FindResponse(ctx, "cmd-1")
		return stored != nil
	})

	select {
	case <-got:
		mu.Lock()
		defer mu.Unlock()
		if seen.EventType != eventbus.CommandResponse {
			t.Errorf("expected a CommandResponse event, got %s", seen.EventType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a CommandResponse event to be published")
	}
}

func TestBridge_HandleTelemetry_AppendsReading(t *testing.T) {
	channel, _, telemetry, _ := newTestBridge(t)
	ctx := context.Background()

	value := 91.5
	reading := entity.TelemetryReading{
		DeviceID:     "veh-1",
		MetricName:   "coolant_temp",
		ValueNumeric: &value,
		Source:       entity.SourceCanbus,
	}
	payload, _ := json.Marshal(reading)
	topic := broker.TelemetryTopic("fleet-1", "veh-1", "coolant_temp")
	if err := channel.Publish(ctx, topic, payload, broker.QoS0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool {
		readings, _ := telemetry.FindAll(ctx, "veh-1", 10)
		return len(readings) == 1
	})
}

func TestBridge_HandleHeartbeat_MalformedPayloadIsDroppedNotFatal(t *testing.T) {
	channel, _, _, bus := newTestBridge(t)
	ctx := context.Background()

	got := make(chan struct{}, 1)
	bus.Subscribe(eventbus.DeviceHeartbeat, func(ctx context.Context, event eventbus.Event) {
		select {
		case got <- struct{}{}:
		default:
		}
	})

	topic := broker.HeartbeatTopic("fleet-1", "veh-1")
	if err := channel.Publish(ctx, topic, []byte("not json"), broker.QoS0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No panic, no crash; a subsequent well-formed publish on the same
	// filter must still be processed.
	hb := entity.Heartbeat{DeviceID: "veh-1", FleetID: "fleet-1", Timestamp: time.Now()}
	payload, _ := json.Marshal(hb)
	if err := channel.Publish(ctx, topic, payload, broker.QoS0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the well-formed heartbeat after a malformed one to be processed")
	}
}
