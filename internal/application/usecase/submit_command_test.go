package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/persistence"
)

func usecaseTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestSubmitCommandUseCase_PublishesOnDeviceCommandTopic(t *testing.T) {
	devices := persistence.NewMemoryDeviceRepository()
	commands := persistence.NewMemoryCommandRepository()
	channel := broker.NewInMemoryChannel()
	bus := eventbus.NewInMemoryBus(usecaseTestLogger(), 16)
	defer bus.Close()

	device, _ := entity.NewDeviceRecord("veh-1", "fleet-1", "ecu-x", "")
	_ = devices.Save(context.Background(), device)

	uc := NewSubmitCommandUseCase(commands, devices, nil, channel, bus, usecaseTestLogger())

	sub, err := channel.Subscribe(context.Background(), broker.CommandRequestTopic("fleet-1", "veh-1"), broker.QoS1)
	if err != nil {
		t.Fatalf("unexpected error subscribing: %v", err)
	}

	env, err := uc.Execute(context.Background(), SubmitCommandInput{
		FleetID: "fleet-1", DeviceID: "veh-1", Command: "read the dtcs", InitiatedBy: "operator",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.ID == "" || env.CorrelationID == "" {
		t.Error("expected a generated envelope and correlation ID")
	}

	select {
	case msg := <-sub:
		var published entity.CommandEnvelope
		if err := json.Unmarshal(msg.Payload, &published); err != nil {
			t.Fatalf("unexpected error decoding published envelope: %v", err)
		}
		if published.ID != env.ID {
			t.Errorf("published envelope ID mismatch: got %s, want %s", published.ID, env.ID)
		}
	default:
		t.Fatal("expected the envelope to be published on the device's command topic")
	}

	saved, err := commands.FindEnvelope(context.Background(), env.ID)
	if err != nil || saved == nil {
		t.Fatalf("expected envelope to be persisted, err=%v saved=%v", err, saved)
	}
}

func TestSubmitCommandUseCase_RejectsUnknownDevice(t *testing.T) {
	devices := persistence.NewMemoryDeviceRepository()
	commands := persistence.NewMemoryCommandRepository()
	channel := broker.NewInMemoryChannel()
	bus := eventbus.NewInMemoryBus(usecaseTestLogger(), 16)
	defer bus.Close()

	uc := NewSubmitCommandUseCase(commands, devices, nil, channel, bus, usecaseTestLogger())

	_, err := uc.Execute(context.Background(), SubmitCommandInput{
		FleetID: "fleet-1", DeviceID: "unknown-device", Command: "read the dtcs",
	})
	if err == nil {
		t.Fatal("expected an error for a command submitted against an unknown device")
	}
}
