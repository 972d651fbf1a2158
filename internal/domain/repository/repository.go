// Package repository defines the storage-agnostic interfaces the domain and
// application layers depend on. Implementations live in
// infrastructure/persistence: an in-memory map, and a gorm-backed store
// used in its place when a database is configured (§6, §9 "Dual-mode
// persistence").
package repository

import (
	"context"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

// DeviceRepository persists DeviceRecord aggregates.
type DeviceRepository interface {
	FindByID(ctx context.Context, deviceID string) (*entity.DeviceRecord, error)
	FindAll(ctx context.Context, fleetID string) ([]*entity.DeviceRecord, error)
	Save(ctx context.Context, device *entity.DeviceRecord) error
	Exists(ctx context.Context, deviceID string) (bool, error)
}

// CommandRepository persists CommandEnvelope + CommandResponse pairs,
// keyed by command (envelope) ID.
type CommandRepository interface {
	SaveEnvelope(ctx context.Context, env *entity.CommandEnvelope) error
	FindEnvelope(ctx context.Context, commandID string) (*entity.CommandEnvelope, error)
	SaveResponse(ctx context.Context, resp *entity.CommandResponse) error
	FindResponse(ctx context.Context, commandID string) (*entity.CommandResponse, error)
	FindAll(ctx context.Context, deviceID string) ([]*entity.CommandEnvelope, error)
}

// ShadowRepository persists ShadowState per (device, shadow_name).
type ShadowRepository interface {
	Find(ctx context.Context, deviceID, shadowName string) (*entity.ShadowState, error)
	Save(ctx context.Context, shadow *entity.ShadowState) error
	ListNames(ctx context.Context, deviceID string) ([]string, error)
}

// TelemetryRepository appends and lists TelemetryReading rows.
type TelemetryRepository interface {
	Append(ctx context.Context, reading *entity.TelemetryReading) error
	FindAll(ctx context.Context, deviceID string, limit int) ([]*entity.TelemetryReading, error)
}

// HeartbeatRepository records the most recent heartbeats, mirroring the
// optional `heartbeats` table from §6.
type HeartbeatRepository interface {
	Record(ctx context.Context, hb *entity.Heartbeat) error
	Latest(ctx context.Context, deviceID string) (*entity.Heartbeat, error)
}
