package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/tool"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// DefaultCloudTimeout tolerates cold-start of a remote model (§4.1:
// "must tolerate cold-start of remote model up to ~10 s").
const DefaultCloudTimeout = 15 * time.Second

// CloudLLMConfig configures the single remote text-model call.
type CloudLLMConfig struct {
	Endpoint         string
	APIKey           string
	Model            string
	Timeout          time.Duration
	AllowedShellCmds []string
}

// CloudLLMEngine is the optional cloud-side parser (§4.1): exactly one
// cloud engine is active at startup, chosen by INFERENCE_ENGINE.
type CloudLLMEngine struct {
	cfg      CloudLLMConfig
	registry *tool.InMemoryRegistry
	client   *http.Client
	logger   *zap.Logger
}

// NewCloudLLMEngine wires a cloud engine against the shared tool
// registry, defaulting the timeout when unset.
func NewCloudLLMEngine(cfg CloudLLMConfig, registry *tool.InMemoryRegistry, logger *zap.Logger) *CloudLLMEngine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCloudTimeout
	}
	return &CloudLLMEngine{
		cfg:      cfg,
		registry: registry,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

func (e *CloudLLMEngine) Name() string { return "cloud_llm" }

// Parse issues one request-response call; any timeout or transport error
// yields nil, nil rather than propagating (§4.1: "Timeouts fail with
// None, not an error — the envelope still proceeds").
func (e *CloudLLMEngine) Parse(ctx context.Context, text string) (*entity.ParsedIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{
		"model": e.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": buildSystemPrompt(e.registry.List(), e.cfg.AllowedShellCmds)},
			{"role": "user", "content": text},
		},
	})
	if err != nil {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("cloud llm engine call failed, dropping to no-opinion", zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("cloud llm engine non-200 response", zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var wire struct {
		Content string `json:"content"`
	}
	text2 := string(raw)
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Content != "" {
		text2 = wire.Content
	}

	parsed, err := parseLLMResponse(text2, e.registry.Names(), entity.TierCloudHaiku)
	if err != nil || parsed == nil {
		return nil, nil
	}

	if parsed.Action == entity.ActionShell {
		if _, verr := sandbox.Validate(parsed.Name); verr != nil {
			e.logger.Info("cloud llm shell suggestion blocked by sandbox", zap.Error(verr))
			return nil, nil
		}
	}

	return parsed, nil
}
