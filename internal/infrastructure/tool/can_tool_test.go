package tool

import (
	"context"
	"testing"
	"time"
)

func TestCanTool_ReadPID_Success(t *testing.T) {
	backend := NewMockCANBackend()
	pidTool := NewPIDReadTool(backend)

	result, err := pidTool.Execute(context.Background(), map[string]interface{}{"pid": "rpm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if result.Data["value"] != 820 {
		t.Errorf("expected the mock rpm reading, got %+v", result.Data)
	}
}

func TestCanTool_ReadPID_UnknownPIDIsUnsuccessfulResult(t *testing.T) {
	backend := NewMockCANBackend()
	pidTool := NewPIDReadTool(backend)

	result, err := pidTool.Execute(context.Background(), map[string]interface{}{"pid": "brake_pressure"})
	if err != nil {
		t.Fatalf("a backend error must surface as an unsuccessful Result, not a Go error: %v", err)
	}
	if result.Success {
		t.Error("expected Success=false for an unknown PID")
	}
}

// TestCanTool_ReadPID_BackendTimeout exercises the slow-backend scenario:
// the mock blocks past the tool's own timeout, and Execute must return
// promptly with an unsuccessful Result rather than hang.
func TestCanTool_ReadPID_BackendTimeout(t *testing.T) {
	backend := NewMockCANBackend()
	backend.SlowPIDs["rpm"] = DefaultPIDTimeout + 5*time.Second

	pidTool := NewPIDReadTool(backend)

	start := time.Now()
	result, err := pidTool.Execute(context.Background(), map[string]interface{}{"pid": "rpm"})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("a timeout must surface as an unsuccessful Result, not a Go error: %v", err)
	}
	if result.Success {
		t.Error("expected Success=false when the backend exceeds the tool timeout")
	}
	if elapsed > DefaultPIDTimeout+time.Second {
		t.Errorf("expected Execute to return at roughly the tool timeout, took %s", elapsed)
	}
}

func TestCanTool_ReadDTCs(t *testing.T) {
	backend := NewMockCANBackend()
	backend.DTCs = []string{"P0171", "P0300"}
	dtcTool := NewDTCReadTool(backend)

	result, err := dtcTool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	codes, ok := result.Data["codes"].([]string)
	if !ok || len(codes) != 2 {
		t.Errorf("expected two stored codes, got %+v", result.Data)
	}
}
