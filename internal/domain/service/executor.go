package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	domaintool "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
	"go.uber.org/zap"
)

// ShellRunner is the narrow interface the executor needs from the
// sandbox package, kept here so this package has no infrastructure
// import (the sandbox's five-layer validation lives in
// infrastructure/sandbox and is wired in at construction).
type ShellRunner interface {
	RunCommand(ctx context.Context, raw string) (output string, exitCode int, err error)
}

// Executor is the edge command executor (§4.2): one envelope in, one
// response out, latency measured end-to-end. Action dispatch is a
// tagged sum with no shared code path (§9) — Tool, Shell, and Reply are
// three distinct functions.
type Executor struct {
	tools       domaintool.Registry
	shell       ShellRunner
	localParser IntentParser
	logger      *zap.Logger
}

// NewExecutor wires an executor against the registry, shell runner, and
// local intent parser it dispatches through.
func NewExecutor(tools domaintool.Registry, shell ShellRunner, localParser IntentParser, logger *zap.Logger) *Executor {
	return &Executor{tools: tools, shell: shell, localParser: localParser, logger: logger}
}

// Handle runs the full pipeline for one envelope, producing exactly one
// terminal CommandResponse (§4.2 step 3: "no retries — the operator sees
// one outcome per envelope").
func (e *Executor) Handle(ctx context.Context, env *entity.CommandEnvelope) *entity.CommandResponse {
	sm := NewEnvelopeStateMachine(e.logger)

	intent := env.ParsedIntent
	if intent == nil {
		parsed, err := e.localParser.Parse(ctx, env.NaturalLanguage)
		if err != nil {
			return e.fail(sm, env, fmt.Sprintf("intent parse failed: %v", err))
		}
		if parsed == nil {
			return e.fail(sm, env, "no engine produced an intent for this request")
		}
		intent = parsed
	}
	_ = sm.Transition(StateParsed)

	if err := intent.Validate(e.tools.Names()); err != nil {
		return e.fail(sm, env, fmt.Sprintf("invalid intent: %v", err))
	}
	_ = sm.Transition(StateDispatched)

	var (
		responseText string
		responseData map[string]interface{}
		execErr      error
	)

	switch intent.Action {
	case entity.ActionTool:
		responseText, responseData, execErr = e.runTool(ctx, intent)
	case entity.ActionShell:
		responseText, execErr = e.runShell(ctx, intent)
	case entity.ActionReply:
		responseText, execErr = e.runReply(intent)
	default:
		execErr = fmt.Errorf("unknown action kind: %s", intent.Action)
	}

	if execErr != nil {
		return e.fail(sm, env, execErr.Error())
	}
	_ = sm.Transition(StateExecuted)
	_ = sm.Transition(StateAssembled)

	resp := entity.NewCompletedResponse(env, responseText, responseData, intent.Tier)
	_ = sm.Transition(StateSized) // size governance applied by the caller before publish
	_ = sm.Transition(StatePublished)
	return resp
}

// runTool is the Tool branch: O(1) registry lookup, execute with
// declared arguments (§4.2 step 2 "Tool").
func (e *Executor) runTool(ctx context.Context, intent *entity.ParsedIntent) (string, map[string]interface{}, error) {
	t, ok := e.tools.Get(intent.Name)
	if !ok {
		return "", nil, fmt.Errorf("unknown tool: %s", intent.Name)
	}
	result, err := t.Execute(ctx, intent.Args)
	if err != nil {
		return "", nil, err
	}
	if !result.Success {
		return "", nil, fmt.Errorf("%s", result.Error)
	}
	return result.Summary, result.Data, nil
}

// runShell is the Shell branch: sanitizer first, spawn only on success
// (§4.2 step 2 "Shell"). A non-zero exit status is not itself a failure
// (§4.3) — only a sanitizer rejection or spawn error is.
func (e *Executor) runShell(ctx context.Context, intent *entity.ParsedIntent) (string, error) {
	output, _, err := e.shell.RunCommand(ctx, intent.Name)
	if err != nil {
		return "", err
	}
	return output, nil
}

// runReply is the Reply branch: extract and return verbatim, no side
// effects (§4.2 step 2 "Reply").
func (e *Executor) runReply(intent *entity.ParsedIntent) (string, error) {
	msg := intent.ReplyMessage()
	if msg == "" {
		return "", fmt.Errorf("reply intent missing message")
	}
	return msg, nil
}

func (e *Executor) fail(sm *EnvelopeStateMachine, env *entity.CommandEnvelope, reason string) *entity.CommandResponse {
	_ = sm.Transition(StateFailed)
	e.logger.Warn("envelope failed", zap.String("command_id", env.ID), zap.String("reason", reason))
	return entity.NewFailedResponse(env, reason)
}

// ReportedStateUpdate is the patch applied to the edge agent's shared
// reported-state after every envelope (§4.2 step 5).
func ReportedStateUpdate(env *entity.CommandEnvelope, toolName string) map[string]interface{} {
	return map[string]interface{}{
		"last_command_id":   env.ID,
		"last_command_tool": toolName,
		"last_command_at":   time.Now().Format(time.RFC3339),
	}
}
