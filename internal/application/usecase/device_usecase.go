package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
)

// DeviceUseCase covers the device-provisioning and listing operations
// from §6 (POST/GET /api/v1/devices, GET /api/v1/devices/{id}).
type DeviceUseCase struct {
	devices repository.DeviceRepository
	bus     eventbus.Bus
	logger  *zap.Logger
}

func NewDeviceUseCase(devices repository.DeviceRepository, bus eventbus.Bus, logger *zap.Logger) *DeviceUseCase {
	return &DeviceUseCase{devices: devices, bus: bus, logger: logger}
}

// ProvisionInput is the REST request shape for provisioning a device.
type ProvisionInput struct {
	DeviceID     string
	FleetID      string
	HardwareType string
	VIN          string
}

// Provision registers a new device record in Provisioning status (§3
// lifecycle: "Provisioning on registration").
func (uc *DeviceUseCase) Provision(ctx context.Context, in ProvisionInput) (*entity.DeviceRecord, error) {
	exists, err := uc.devices.Exists(ctx, in.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("usecase: check existing device: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("usecase: device %q already provisioned", in.DeviceID)
	}

	device, err := entity.NewDeviceRecord(in.DeviceID, in.FleetID, in.HardwareType, in.VIN)
	if err != nil {
		return nil, fmt.Errorf("usecase: build device record: %w", err)
	}
	if err := uc.devices.Save(ctx, device); err != nil {
		return nil, fmt.Errorf("usecase: persist device: %w", err)
	}

	uc.bus.Publish(ctx, eventbus.New(eventbus.DeviceProvisioned, device))
	return device, nil
}

// List returns every device in a fleet, or every device when fleetID is
// empty.
func (uc *DeviceUseCase) List(ctx context.Context, fleetID string) ([]*entity.DeviceRecord, error) {
	return uc.devices.FindAll(ctx, fleetID)
}

// Get returns one device by ID, or nil if it does not exist.
func (uc *DeviceUseCase) Get(ctx context.Context, deviceID string) (*entity.DeviceRecord, error) {
	return uc.devices.FindByID(ctx, deviceID)
}
