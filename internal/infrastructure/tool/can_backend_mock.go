package tool

import (
	"context"
	"fmt"
	"time"
)

// MockCANBackend is the in-repo development/test stand-in for the
// real CAN/OBD-II byte-level decoder (§1, explicitly out of scope). It
// reproduces the "backend returns timeout after its configured wait"
// scenario (§8 scenario 2) by blocking past the caller's context
// deadline for PIDs named in SlowPIDs.
type MockCANBackend struct {
	Readings map[string]map[string]interface{}
	DTCs     []string
	SlowPIDs map[string]time.Duration
}

// NewMockCANBackend seeds a backend with a plausible reading set.
func NewMockCANBackend() *MockCANBackend {
	return &MockCANBackend{
		Readings: map[string]map[string]interface{}{
			"rpm":          {"pid": "rpm", "value": 820, "unit": "rpm"},
			"coolant_temp": {"pid": "coolant_temp", "value": 91, "unit": "celsius"},
			"fuel_level":   {"pid": "fuel_level", "value": 62, "unit": "percent"},
		},
		DTCs:     []string{},
		SlowPIDs: map[string]time.Duration{},
	}
}

func (m *MockCANBackend) ReadPID(ctx context.Context, pid string) (map[string]interface{}, error) {
	if wait, slow := m.SlowPIDs[pid]; slow {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("response timeout after %dms", wait.Milliseconds())
		}
	}
	reading, ok := m.Readings[pid]
	if !ok {
		return nil, fmt.Errorf("unknown pid: %s", pid)
	}
	return reading, nil
}

func (m *MockCANBackend) ReadDTCs(ctx context.Context) ([]string, error) {
	return m.DTCs, nil
}
