// Package tool holds the two concrete capability bundles named in §9
// ("Polymorphism in tools"): CanTool wraps CAN/OBD-II reads, LogTool
// wraps log-file search and tail. Both satisfy domain/tool.Tool; the
// registry holds them keyed by name, dispatched in O(1).
package tool

import (
	"context"
	"fmt"
	"time"

	domaintool "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
)

// CANBackend is the black-box hardware capability the spec places out of
// scope (§1: "CAN/OBD-II byte-level decoding ... black-box tools invoked
// by the executor"). Implementations live outside this module in
// production; DefaultCANBackend below is the in-repo mock used for
// development and tests.
type CANBackend interface {
	ReadPID(ctx context.Context, pid string) (map[string]interface{}, error)
	ReadDTCs(ctx context.Context) ([]string, error)
}

// DefaultPIDTimeout bounds a single PID read (§5: "CAN frames: a few
// seconds per request").
const DefaultPIDTimeout = 3 * time.Second

// CanTool exposes two named operations — reading a single PID and
// reading stored diagnostic trouble codes — as one registry entry per
// operation, matching the rule engine's `read_obd_pid` / `read_dtcs`
// tool names.
type CanTool struct {
	name    string
	backend CANBackend
	timeout time.Duration
}

// NewPIDReadTool constructs the `read_obd_pid` tool.
func NewPIDReadTool(backend CANBackend) *CanTool {
	return &CanTool{name: "read_obd_pid", backend: backend, timeout: DefaultPIDTimeout}
}

// NewDTCReadTool constructs the `read_dtcs` tool.
func NewDTCReadTool(backend CANBackend) *CanTool {
	return &CanTool{name: "read_dtcs", backend: backend, timeout: DefaultPIDTimeout}
}

func (t *CanTool) Name() string { return t.name }

func (t *CanTool) Description() string {
	if t.name == "read_dtcs" {
		return "Read stored diagnostic trouble codes from the vehicle's CAN bus."
	}
	return "Read a single OBD-II PID (rpm, coolant_temp, fuel_level) from the vehicle's CAN bus."
}

func (t *CanTool) Schema() map[string]interface{} {
	if t.name == "read_dtcs" {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pid": map[string]interface{}{"type": "string", "enum": []string{"rpm", "coolant_temp", "fuel_level"}},
		},
		"required": []string{"pid"},
	}
}

// Execute dispatches to the backend with a per-tool timeout (§5); a
// timeout or backend error surfaces as an unsuccessful Result rather than
// a Go error, since the executor's Tool branch always produces a
// structured record (§4.2).
func (t *CanTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if t.name == "read_dtcs" {
		codes, err := t.backend.ReadDTCs(ctx)
		if err != nil {
			return &domaintool.Result{ToolName: t.name, Success: false, Error: err.Error()}, nil
		}
		return &domaintool.Result{
			ToolName: t.name,
			Success:  true,
			Data:     map[string]interface{}{"codes": codes},
			Summary:  fmt.Sprintf("%d diagnostic trouble code(s) stored", len(codes)),
		}, nil
	}

	pid, _ := args["pid"].(string)
	if pid == "" {
		return &domaintool.Result{ToolName: t.name, Success: false, Error: "missing required argument: pid"}, nil
	}
	reading, err := t.backend.ReadPID(ctx, pid)
	if err != nil {
		return &domaintool.Result{ToolName: t.name, Success: false, Error: err.Error()}, nil
	}
	return &domaintool.Result{
		ToolName: t.name,
		Success:  true,
		Data:     reading,
		Summary:  fmt.Sprintf("%s read", pid),
	}, nil
}
