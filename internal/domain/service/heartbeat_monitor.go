package service

import (
	"context"
	"time"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
	"go.uber.org/zap"
)

// DefaultMissWindowMultiple is the fallback offline-transition window,
// expressed as a multiple of heartbeat_interval_secs (§9 Open Question:
// "no safe default is specified in the source corpus; this specification
// fixes it at 3x").
const DefaultMissWindowMultiple = 3

// HeartbeatMonitor applies inbound heartbeats to device records and runs
// the periodic offline sweep (§4.6 "Heartbeat", §3 DeviceRecord lifecycle).
type HeartbeatMonitor struct {
	devices    repository.DeviceRepository
	heartbeats repository.HeartbeatRepository
	bus        eventbus.Bus
	missWindow time.Duration
	logger     *zap.Logger
}

// NewHeartbeatMonitor wires a monitor against its repositories and event
// bus, with the offline miss window pre-computed from the configured
// heartbeat interval.
func NewHeartbeatMonitor(devices repository.DeviceRepository, heartbeats repository.HeartbeatRepository, bus eventbus.Bus, heartbeatInterval time.Duration, logger *zap.Logger) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		devices:    devices,
		heartbeats: heartbeats,
		bus:        bus,
		missWindow: heartbeatInterval * DefaultMissWindowMultiple,
		logger:     logger,
	}
}

// Ingest records a heartbeat, transitions the device to Online when it
// was previously Offline or Provisioning, and broadcasts accordingly
// (§4.6 "Heartbeat").
func (m *HeartbeatMonitor) Ingest(ctx context.Context, hb *entity.Heartbeat) error {
	if err := m.heartbeats.Record(ctx, hb); err != nil {
		return err
	}

	device, err := m.devices.FindByID(ctx, hb.DeviceID)
	if err != nil {
		return err
	}
	if device == nil {
		device, err = entity.NewDeviceRecord(hb.DeviceID, hb.FleetID, "", "")
		if err != nil {
			return err
		}
	}

	wasOffline := device.Status == entity.DeviceOffline
	changed := device.MarkHeartbeat(hb.Timestamp)

	if err := m.devices.Save(ctx, device); err != nil {
		return err
	}

	m.bus.Publish(ctx, eventbus.New(eventbus.DeviceHeartbeat, hb))
	if changed && wasOffline {
		m.bus.Publish(ctx, eventbus.New(eventbus.DeviceStatusChanged, device))
	}
	return nil
}

// SweepOffline scans every device in a fleet and flips any device past
// its miss window to Offline, broadcasting DeviceStatusChanged for each
// transition. CloudApp runs it on a ticker, one loop per attached fleet
// (§3 "transitions to Offline after a miss window").
func (m *HeartbeatMonitor) SweepOffline(ctx context.Context, fleetID string) (int, error) {
	devices, err := m.devices.FindAll(ctx, fleetID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	transitioned := 0
	for _, d := range devices {
		if d.Status == entity.DeviceOffline || d.Status == entity.DeviceDecommissioned {
			continue
		}
		if !d.IsOverdue(now, m.missWindow) {
			continue
		}
		d.Status = entity.DeviceOffline
		if err := m.devices.Save(ctx, d); err != nil {
			m.logger.Error("failed to mark device offline", zap.String("device_id", d.DeviceID), zap.Error(err))
			continue
		}
		m.bus.Publish(ctx, eventbus.New(eventbus.DeviceStatusChanged, d))
		transitioned++
	}
	return transitioned, nil
}
