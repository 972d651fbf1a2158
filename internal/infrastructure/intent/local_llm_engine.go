package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// DefaultLocalTimeout bounds the on-device request; co-resident inference
// servers are expected to be much faster than a remote model, but the
// contract is the same "no opinion on timeout" rule (§4.1).
const DefaultLocalTimeout = 5 * time.Second

// LocalLLMConfig configures the co-resident inference server call,
// mirroring the agent's `local LLM {host, model, timeout_secs, enabled}`
// configuration block (§6).
type LocalLLMConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
	Enabled bool
}

// LocalLLMEngine is always present on the agent, independent of the
// cloud engine choice (§4.1): it is the fallback invoked when no intent
// was embedded in the envelope.
type LocalLLMEngine struct {
	cfg      LocalLLMConfig
	registry *tool.InMemoryRegistry
	client   *http.Client
	logger   *zap.Logger
}

// NewLocalLLMEngine wires a local engine against the agent's tool
// registry.
func NewLocalLLMEngine(cfg LocalLLMConfig, registry *tool.InMemoryRegistry, logger *zap.Logger) *LocalLLMEngine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLocalTimeout
	}
	return &LocalLLMEngine{
		cfg:      cfg,
		registry: registry,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

func (e *LocalLLMEngine) Name() string { return "local_llm" }

// Parse issues a local HTTP request in JSON mode. A persistent-unknown-
// tool response is logged and surfaced as an error (§4.1: "a persistent-
// unknown-tool response is logged and treated as intent failure") rather
// than silently dropping to nil — this is the one engine where the
// failure must reach the executor as a descriptive error, since it is
// the last parser in the pipeline.
func (e *LocalLLMEngine) Parse(ctx context.Context, text string) (*entity.ParsedIntent, error) {
	if !e.cfg.Enabled {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{
		"model":  e.cfg.Model,
		"format": "json",
		"prompt": buildSystemPrompt(e.registry.List(), nil) + "\n\nOperator: " + text,
	})
	if err != nil {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Host, bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("local llm engine unreachable, dropping to no-opinion", zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<19))
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var wire struct {
		Response string `json:"response"`
	}
	text2 := string(raw)
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Response != "" {
		text2 = wire.Response
	}

	cleaned := stripCodeFences(text2)
	var probe struct {
		Action   string `json:"action"`
		ToolName string `json:"tool_name"`
	}
	if json.Unmarshal([]byte(cleaned), &probe) == nil && probe.Action == "tool" && !e.registry.Has(probe.ToolName) {
		e.logger.Error("local llm engine returned unknown tool, failing intent", zap.String("tool_name", probe.ToolName))
		return nil, fmt.Errorf("local llm: unknown tool %q", probe.ToolName)
	}

	parsed, _ := parseLLMResponse(text2, e.registry.Names(), entity.TierLocal)
	if parsed != nil && parsed.Action == entity.ActionShell {
		if _, verr := sandbox.Validate(parsed.Name); verr != nil {
			e.logger.Info("local llm shell suggestion blocked by sandbox", zap.Error(verr))
			return nil, nil
		}
	}
	return parsed, nil
}
