package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	domaintool "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
)

// fakeTool is a minimal domaintool.Tool for exercising the Tool branch.
type fakeTool struct {
	name   string
	result *domaintool.Result
	err    error
}

func (f *fakeTool) Name() string                         { return f.name }
func (f *fakeTool) Description() string                  { return "fake tool for tests" }
func (f *fakeTool) Schema() map[string]interface{}       { return map[string]interface{}{} }
func (f *fakeTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeShell is a minimal ShellRunner for exercising the Shell branch.
type fakeShell struct {
	output   string
	exitCode int
	err      error
}

func (f *fakeShell) RunCommand(ctx context.Context, raw string) (string, int, error) {
	return f.output, f.exitCode, f.err
}

// nilParser always declines — used when the envelope already carries a
// ParsedIntent and the executor should never consult the fallback.
type nilParser struct{ called bool }

func (p *nilParser) Parse(ctx context.Context, text string) (*entity.ParsedIntent, error) {
	p.called = true
	return nil, nil
}
func (p *nilParser) Name() string { return "nil" }

func newExecutorTestTools() *domaintool.InMemoryRegistry {
	reg := domaintool.NewInMemoryRegistry()
	_ = reg.Register(&fakeTool{
		name:   "read_dtc",
		result: &domaintool.Result{ToolName: "read_dtc", Success: true, Summary: "no codes", Data: map[string]interface{}{"codes": []interface{}{}}},
	})
	return reg
}

func TestExecutor_ToolBranch_Success(t *testing.T) {
	tools := newExecutorTestTools()
	ex := NewExecutor(tools, &fakeShell{}, &nilParser{}, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-1", DeviceID: "veh-1", CorrelationID: "corr-1",
		ParsedIntent: &entity.ParsedIntent{Action: entity.ActionTool, Name: "read_dtc", Confidence: 0.9},
	}

	resp := ex.Handle(context.Background(), env)
	if resp.Status != entity.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.ResponseText != "no codes" {
		t.Errorf("expected tool summary as response text, got %q", resp.ResponseText)
	}
}

func TestExecutor_ToolBranch_UnknownToolFails(t *testing.T) {
	tools := newExecutorTestTools()
	ex := NewExecutor(tools, &fakeShell{}, &nilParser{}, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-2", DeviceID: "veh-1", CorrelationID: "corr-2",
		ParsedIntent: &entity.ParsedIntent{Action: entity.ActionTool, Name: "does_not_exist", Confidence: 0.9},
	}

	resp := ex.Handle(context.Background(), env)
	if resp.Status != entity.StatusFailed {
		t.Fatalf("expected failed for an unknown tool, got %s", resp.Status)
	}
	if resp.Error == "" {
		t.Error("a failed response must carry a non-empty error")
	}
}

func TestExecutor_ToolBranch_ExecutionFailurePropagates(t *testing.T) {
	reg := domaintool.NewInMemoryRegistry()
	_ = reg.Register(&fakeTool{name: "read_dtc", err: errors.New("can bus timeout")})
	ex := NewExecutor(reg, &fakeShell{}, &nilParser{}, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-3", DeviceID: "veh-1", CorrelationID: "corr-3",
		ParsedIntent: &entity.ParsedIntent{Action: entity.ActionTool, Name: "read_dtc", Confidence: 0.9},
	}

	resp := ex.Handle(context.Background(), env)
	if resp.Status != entity.StatusFailed {
		t.Fatalf("expected failed on tool error, got %s", resp.Status)
	}
}

func TestExecutor_ShellBranch_AllowedCommand(t *testing.T) {
	tools := domaintool.NewInMemoryRegistry()
	ex := NewExecutor(tools, &fakeShell{output: "disk ok", exitCode: 0}, &nilParser{}, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-4", DeviceID: "veh-1", CorrelationID: "corr-4",
		ParsedIntent: &entity.ParsedIntent{Action: entity.ActionShell, Name: "df -h", Confidence: 0.9},
	}

	resp := ex.Handle(context.Background(), env)
	if resp.Status != entity.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.ResponseText != "disk ok" {
		t.Errorf("expected shell output as response text, got %q", resp.ResponseText)
	}
}

func TestExecutor_ShellBranch_BlockedCommandFails(t *testing.T) {
	tools := domaintool.NewInMemoryRegistry()
	ex := NewExecutor(tools, &fakeShell{err: errors.New("shell: command blocked by sandbox")}, &nilParser{}, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-5", DeviceID: "veh-1", CorrelationID: "corr-5",
		ParsedIntent: &entity.ParsedIntent{Action: entity.ActionShell, Name: "rm -rf /", Confidence: 0.9},
	}

	resp := ex.Handle(context.Background(), env)
	if resp.Status != entity.StatusFailed {
		t.Fatalf("expected a blocked shell command to fail the envelope, got %s", resp.Status)
	}
}

func TestExecutor_ShellBranch_NonZeroExitIsNotFailure(t *testing.T) {
	tools := domaintool.NewInMemoryRegistry()
	ex := NewExecutor(tools, &fakeShell{output: "not found", exitCode: 1}, &nilParser{}, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-6", DeviceID: "veh-1", CorrelationID: "corr-6",
		ParsedIntent: &entity.ParsedIntent{Action: entity.ActionShell, Name: "grep missing /var/log/syslog", Confidence: 0.9},
	}

	resp := ex.Handle(context.Background(), env)
	if resp.Status != entity.StatusCompleted {
		t.Errorf("a non-zero exit code alone must not fail the envelope, got %s", resp.Status)
	}
}

func TestExecutor_ReplyBranch(t *testing.T) {
	tools := domaintool.NewInMemoryRegistry()
	ex := NewExecutor(tools, &fakeShell{}, &nilParser{}, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-7", DeviceID: "veh-1", CorrelationID: "corr-7",
		ParsedIntent: &entity.ParsedIntent{
			Action:     entity.ActionReply,
			Confidence: 0.9,
			Args:       map[string]interface{}{"message": "battery is at 82 percent"},
		},
	}

	resp := ex.Handle(context.Background(), env)
	if resp.Status != entity.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.ResponseText != "battery is at 82 percent" {
		t.Errorf("expected verbatim reply text, got %q", resp.ResponseText)
	}
}

func TestExecutor_FallsBackToLocalParserWhenUnparsed(t *testing.T) {
	tools := newExecutorTestTools()
	parser := &nilParser{}
	ex := NewExecutor(tools, &fakeShell{}, parser, stateTestLogger())

	env := &entity.CommandEnvelope{
		ID: "env-8", DeviceID: "veh-1", CorrelationID: "corr-8",
		NaturalLanguage: "read diagnostic trouble codes",
	}

	resp := ex.Handle(context.Background(), env)
	if !parser.called {
		t.Error("expected the local parser to be consulted when no parsed intent is present")
	}
	if resp.Status != entity.StatusFailed {
		t.Errorf("a parser with no opinion should fail the envelope, got %s", resp.Status)
	}
}
