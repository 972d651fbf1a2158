package intent

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

func compositeTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type stubEngine struct {
	name   string
	intent *entity.ParsedIntent
	err    error
}

func (s *stubEngine) Name() string { return s.name }
func (s *stubEngine) Parse(ctx context.Context, text string) (*entity.ParsedIntent, error) {
	return s.intent, s.err
}

func TestCompositeEngine_FirstNonNilWins(t *testing.T) {
	first := &stubEngine{name: "first", intent: &entity.ParsedIntent{Action: entity.ActionReply, Name: "first-hit"}}
	second := &stubEngine{name: "second", intent: &entity.ParsedIntent{Action: entity.ActionReply, Name: "second-hit"}}

	c := NewCompositeEngine(compositeTestLogger(), first, second)
	got, err := c.Parse(context.Background(), "irrelevant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "first-hit" {
		t.Errorf("expected the first engine's intent to win, got %q", got.Name)
	}
}

func TestCompositeEngine_FallsThroughOnNilOpinion(t *testing.T) {
	first := &stubEngine{name: "first", intent: nil}
	second := &stubEngine{name: "second", intent: &entity.ParsedIntent{Action: entity.ActionReply, Name: "second-hit"}}

	c := NewCompositeEngine(compositeTestLogger(), first, second)
	got, err := c.Parse(context.Background(), "irrelevant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Name != "second-hit" {
		t.Fatalf("expected to fall through to the second engine, got %+v", got)
	}
}

func TestCompositeEngine_EngineErrorIsTreatedAsDecline(t *testing.T) {
	first := &stubEngine{name: "first", err: errors.New("engine exploded")}
	second := &stubEngine{name: "second", intent: &entity.ParsedIntent{Action: entity.ActionReply, Name: "second-hit"}}

	c := NewCompositeEngine(compositeTestLogger(), first, second)
	got, err := c.Parse(context.Background(), "irrelevant")
	if err != nil {
		t.Fatalf("an engine error must not abort the chain: %v", err)
	}
	if got == nil || got.Name != "second-hit" {
		t.Fatalf("expected to fall through past the failing engine, got %+v", got)
	}
}

func TestCompositeEngine_LastEngineErrorPropagates(t *testing.T) {
	first := &stubEngine{name: "first"}
	last := &stubEngine{name: "last", err: errors.New("local llm: unknown tool \"frobnicate\"")}

	c := NewCompositeEngine(compositeTestLogger(), first, last)
	got, err := c.Parse(context.Background(), "irrelevant")
	if err == nil {
		t.Fatal("expected the last engine's error to propagate, got nil")
	}
	if got != nil {
		t.Errorf("expected no intent alongside a propagated error, got %+v", got)
	}
}

func TestCompositeEngine_NoEngineHasOpinion(t *testing.T) {
	first := &stubEngine{name: "first"}
	second := &stubEngine{name: "second"}

	c := NewCompositeEngine(compositeTestLogger(), first, second)
	got, err := c.Parse(context.Background(), "irrelevant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil when no engine has an opinion, got %+v", got)
	}
}

func TestCompositeEngine_BackfillsTierForRuleEngine(t *testing.T) {
	rule := &stubEngine{name: "rule", intent: &entity.ParsedIntent{Action: entity.ActionReply, Name: "hit"}}

	c := NewCompositeEngine(compositeTestLogger(), rule)
	got, err := c.Parse(context.Background(), "irrelevant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tier != entity.TierLocal {
		t.Errorf("expected the rule engine's tier to backfill to local, got %q", got.Tier)
	}
}
