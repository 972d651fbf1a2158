package intent

import (
	"context"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

// engine is the minimal contract every parser engine satisfies; declared
// locally to avoid an import cycle back to domain/service.
type engine interface {
	Parse(ctx context.Context, text string) (*entity.ParsedIntent, error)
	Name() string
}

// CompositeEngine runs its engines in priority order and falls through
// to the next one only when the previous one has no opinion. Both sides
// use it: the cloud chains the rule engine (free, ~80% coverage per
// §4.1) before the cloud LLM engine, and the agent chains the rule
// engine before the local LLM engine as the parser it uses when an
// envelope arrives with no parsed_intent (§4.1 "Tie-break / pipeline").
type CompositeEngine struct {
	engines []engine
	logger  *zap.Logger
}

// NewCompositeEngine chains engines in priority order.
func NewCompositeEngine(logger *zap.Logger, engines ...engine) *CompositeEngine {
	return &CompositeEngine{engines: engines, logger: logger}
}

func (c *CompositeEngine) Name() string { return "composite" }

// Parse tries each engine in order, returning the first non-nil intent.
// An error from any engine but the last is logged and treated like a nil
// opinion — it never aborts the chain. An error from the last engine is
// not a fallback candidate (there is nothing left to fall through to), so
// it propagates to the caller verbatim: this is how the on-device LLM's
// persistent-unknown-tool failure (§4.1, §7 "if it was the last parser,
// executor reports Failed") reaches Executor.Handle as a descriptive
// error instead of the generic no-opinion message.
func (c *CompositeEngine) Parse(ctx context.Context, text string) (*entity.ParsedIntent, error) {
	for i, e := range c.engines {
		intent, err := e.Parse(ctx, text)
		if err != nil {
			if i == len(c.engines)-1 {
				return nil, err
			}
			c.logger.Warn("intent engine failed, trying next", zap.String("engine", e.Name()), zap.Error(err))
			continue
		}
		if intent != nil {
			intent.Tier = tierFor(e.Name(), intent.Tier)
			return intent, nil
		}
	}
	return nil, nil
}

func tierFor(engineName string, existing entity.InferenceTier) entity.InferenceTier {
	if existing != "" {
		return existing
	}
	if engineName == "rule" {
		return entity.TierLocal
	}
	return existing
}
