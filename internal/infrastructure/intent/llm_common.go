package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
)

// llmResponse is the JSON object both the cloud and on-device models must
// return (§4.1): {action, tool_name|command, tool_args|message, confidence}.
type llmResponse struct {
	Action     string                 `json:"action"`
	ToolName   string                 `json:"tool_name"`
	Command    string                 `json:"command"`
	ToolArgs   map[string]interface{} `json:"tool_args"`
	Message    string                 `json:"message"`
	Confidence float64                `json:"confidence"`
}

// buildSystemPrompt enumerates known tools, the allowed shell commands,
// and the reply action, per §4.2's fixed system prompt contract.
func buildSystemPrompt(tools []tool.Definition, allowedShellCmds []string) string {
	var b strings.Builder
	b.WriteString("You are the intent parser for a fleet diagnostics agent. ")
	b.WriteString("Given operator text, return ONLY a JSON object {action, tool_name|command, tool_args|message, confidence}. ")
	b.WriteString("action is one of \"tool\", \"shell\", \"reply\".\n\n")

	b.WriteString("Known tools:\n")
	for _, t := range tools {
		params, _ := json.Marshal(t.Parameters)
		fmt.Fprintf(&b, "- %s: %s params=%s\n", t.Name, t.Description, string(params))
	}

	b.WriteString("\nAllowed shell commands: ")
	b.WriteString(strings.Join(allowedShellCmds, ", "))
	b.WriteString("\n\nWhen the operator is just chatting, return action=\"reply\" with a \"message\" field.\n")
	return b.String()
}

// stripCodeFences removes a leading/trailing ```json ... ``` or ``` ...
// ``` wrapper before JSON decoding (§4.2 "must strip enclosing code
// fences before parsing").
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseLLMResponse decodes and validates raw model output into a
// ParsedIntent, dropping to nil (not an error) on any validation failure
// so the caller treats it identically to a timeout (§4.2).
func parseLLMResponse(raw string, knownTools map[string]bool, tier entity.InferenceTier) (*entity.ParsedIntent, error) {
	cleaned := stripCodeFences(raw)

	var resp llmResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, nil
	}

	switch resp.Action {
	case "tool":
		if !knownTools[resp.ToolName] {
			return nil, nil
		}
		return &entity.ParsedIntent{
			Action:     entity.ActionTool,
			Name:       resp.ToolName,
			Args:       resp.ToolArgs,
			Confidence: resp.Confidence,
			Tier:       tier,
		}, nil
	case "shell":
		return &entity.ParsedIntent{
			Action:     entity.ActionShell,
			Name:       resp.Command,
			Args:       map[string]interface{}{},
			Confidence: resp.Confidence,
			Tier:       tier,
		}, nil
	case "reply":
		if resp.Message == "" {
			return nil, nil
		}
		return &entity.ParsedIntent{
			Action:     entity.ActionReply,
			Name:       "reply",
			Args:       map[string]interface{}{"message": resp.Message},
			Confidence: resp.Confidence,
			Tier:       tier,
		}, nil
	default:
		return nil, nil
	}
}
