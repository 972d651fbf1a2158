package persistence

import (
	"context"
	"sync"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
)

// One reader-writer-protected map per concept, never a single monolithic
// lock (§9 "Shared state on the cloud"). CloudApp uses these when no
// database URL is configured; with one, the Gorm* repositories replace
// them.

// MemoryDeviceRepository implements repository.DeviceRepository.
type MemoryDeviceRepository struct {
	mu      sync.RWMutex
	devices map[string]*entity.DeviceRecord
}

func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{devices: make(map[string]*entity.DeviceRecord)}
}

func (r *MemoryDeviceRepository) FindByID(ctx context.Context, deviceID string) (*entity.DeviceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[deviceID]
	if !ok {
		return nil, nil
	}
	copy := *d
	return &copy, nil
}

func (r *MemoryDeviceRepository) FindAll(ctx context.Context, fleetID string) ([]*entity.DeviceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.DeviceRecord, 0, len(r.devices))
	for _, d := range r.devices {
		if fleetID == "" || d.FleetID == fleetID {
			copy := *d
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *MemoryDeviceRepository) Save(ctx context.Context, device *entity.DeviceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *device
	r.devices[device.DeviceID] = &copy
	return nil
}

func (r *MemoryDeviceRepository) Exists(ctx context.Context, deviceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[deviceID]
	return ok, nil
}

var _ repository.DeviceRepository = (*MemoryDeviceRepository)(nil)

// MemoryCommandRepository implements repository.CommandRepository.
type MemoryCommandRepository struct {
	mu        sync.RWMutex
	envelopes map[string]*entity.CommandEnvelope
	responses map[string]*entity.CommandResponse
}

func NewMemoryCommandRepository() *MemoryCommandRepository {
	return &MemoryCommandRepository{
		envelopes: make(map[string]*entity.CommandEnvelope),
		responses: make(map[string]*entity.CommandResponse),
	}
}

func (r *MemoryCommandRepository) SaveEnvelope(ctx context.Context, env *entity.CommandEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *env
	r.envelopes[env.ID] = &copy
	return nil
}

func (r *MemoryCommandRepository) FindEnvelope(ctx context.Context, commandID string) (*entity.CommandEnvelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.envelopes[commandID]
	if !ok {
		return nil, nil
	}
	copy := *e
	return &copy, nil
}

func (r *MemoryCommandRepository) SaveResponse(ctx context.Context, resp *entity.CommandResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *resp
	r.responses[resp.CommandID] = &copy
	return nil
}

func (r *MemoryCommandRepository) FindResponse(ctx context.Context, commandID string) (*entity.CommandResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp, ok := r.responses[commandID]
	if !ok {
		return nil, nil
	}
	copy := *resp
	return &copy, nil
}

func (r *MemoryCommandRepository) FindAll(ctx context.Context, deviceID string) ([]*entity.CommandEnvelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.CommandEnvelope, 0, len(r.envelopes))
	for _, e := range r.envelopes {
		if deviceID == "" || e.DeviceID == deviceID {
			copy := *e
			out = append(out, &copy)
		}
	}
	return out, nil
}

var _ repository.CommandRepository = (*MemoryCommandRepository)(nil)

// MemoryShadowRepository implements repository.ShadowRepository.
type MemoryShadowRepository struct {
	mu      sync.RWMutex
	shadows map[string]*entity.ShadowState // key: deviceID + "/" + shadowName
}

func NewMemoryShadowRepository() *MemoryShadowRepository {
	return &MemoryShadowRepository{shadows: make(map[string]*entity.ShadowState)}
}

func shadowKey(deviceID, shadowName string) string {
	return deviceID + "/" + shadowName
}

func (r *MemoryShadowRepository) Find(ctx context.Context, deviceID, shadowName string) (*entity.ShadowState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shadows[shadowKey(deviceID, shadowName)]
	if !ok {
		return nil, nil
	}
	copy := *s
	return &copy, nil
}

func (r *MemoryShadowRepository) Save(ctx context.Context, shadow *entity.ShadowState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *shadow
	r.shadows[shadowKey(shadow.DeviceID, shadow.ShadowName)] = &copy
	return nil
}

func (r *MemoryShadowRepository) ListNames(ctx context.Context, deviceID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, s := range r.shadows {
		if s.DeviceID == deviceID {
			names = append(names, s.ShadowName)
		}
	}
	return names, nil
}

var _ repository.ShadowRepository = (*MemoryShadowRepository)(nil)

// MemoryTelemetryRepository implements repository.TelemetryRepository.
type MemoryTelemetryRepository struct {
	mu       sync.RWMutex
	readings map[string][]*entity.TelemetryReading
}

func NewMemoryTelemetryRepository() *MemoryTelemetryRepository {
	return &MemoryTelemetryRepository{readings: make(map[string][]*entity.TelemetryReading)}
}

func (r *MemoryTelemetryRepository) Append(ctx context.Context, reading *entity.TelemetryReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings[reading.DeviceID] = append(r.readings[reading.DeviceID], reading)
	return nil
}

func (r *MemoryTelemetryRepository) FindAll(ctx context.Context, deviceID string, limit int) ([]*entity.TelemetryReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.readings[deviceID]
	if limit <= 0 || limit >= len(all) {
		out := make([]*entity.TelemetryReading, len(all))
		copy(out, all)
		return out, nil
	}
	start := len(all) - limit
	out := make([]*entity.TelemetryReading, limit)
	copy(out, all[start:])
	return out, nil
}

var _ repository.TelemetryRepository = (*MemoryTelemetryRepository)(nil)

// MemoryHeartbeatRepository implements repository.HeartbeatRepository.
type MemoryHeartbeatRepository struct {
	mu     sync.RWMutex
	latest map[string]*entity.Heartbeat
}

func NewMemoryHeartbeatRepository() *MemoryHeartbeatRepository {
	return &MemoryHeartbeatRepository{latest: make(map[string]*entity.Heartbeat)}
}

func (r *MemoryHeartbeatRepository) Record(ctx context.Context, hb *entity.Heartbeat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *hb
	r.latest[hb.DeviceID] = &copy
	return nil
}

func (r *MemoryHeartbeatRepository) Latest(ctx context.Context, deviceID string) (*entity.Heartbeat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hb, ok := r.latest[deviceID]
	if !ok {
		return nil, nil
	}
	copy := *hb
	return &copy, nil
}

var _ repository.HeartbeatRepository = (*MemoryHeartbeatRepository)(nil)
