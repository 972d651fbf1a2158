package service

import (
	"testing"

	"go.uber.org/zap"
)

func stateTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestEnvelopeStateMachine_StraightLinePipeline(t *testing.T) {
	sm := NewEnvelopeStateMachine(stateTestLogger())

	steps := []EnvelopeState{StateParsed, StateDispatched, StateExecuted, StateAssembled, StateSized, StatePublished}
	for _, to := range steps {
		if err := sm.Transition(to); err != nil {
			t.Fatalf("unexpected error transitioning to %s: %v", to, err)
		}
	}
	if sm.State() != StatePublished {
		t.Errorf("final state: got %s, want %s", sm.State(), StatePublished)
	}
	if !sm.IsTerminal() {
		t.Error("published should be terminal")
	}
}

func TestEnvelopeStateMachine_RejectsSkippedStep(t *testing.T) {
	sm := NewEnvelopeStateMachine(stateTestLogger())

	if err := sm.Transition(StateDispatched); err == nil {
		t.Error("expected error transitioning received -> dispatched directly")
	}
	if sm.State() != StateReceived {
		t.Errorf("state should be unchanged after rejected transition, got %s", sm.State())
	}
}

func TestEnvelopeStateMachine_AnyStateCanFail(t *testing.T) {
	for _, from := range []EnvelopeState{StateReceived, StateParsed, StateDispatched, StateExecuted, StateAssembled, StateSized} {
		sm := NewEnvelopeStateMachine(stateTestLogger())
		// Walk to `from` along the straight line.
		for _, step := range []EnvelopeState{StateParsed, StateDispatched, StateExecuted, StateAssembled, StateSized} {
			if sm.State() == from {
				break
			}
			_ = sm.Transition(step)
		}
		if err := sm.Transition(StateFailed); err != nil {
			t.Errorf("from %s: expected Failed to always be reachable, got %v", from, err)
		}
	}
}

func TestEnvelopeStateMachine_FailedIsTerminal(t *testing.T) {
	sm := NewEnvelopeStateMachine(stateTestLogger())
	if err := sm.Transition(StateFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sm.IsTerminal() {
		t.Error("failed should be terminal")
	}
	if err := sm.Transition(StateParsed); err == nil {
		t.Error("no transition should be possible out of failed")
	}
}

func TestEnvelopeStateMachine_ListenersFireInOrder(t *testing.T) {
	sm := NewEnvelopeStateMachine(stateTestLogger())

	var seen []string
	sm.OnTransition(func(from, to EnvelopeState) {
		seen = append(seen, string(from)+">"+string(to))
	})

	_ = sm.Transition(StateParsed)
	_ = sm.Transition(StateDispatched)

	want := []string{"received>parsed", "parsed>dispatched"}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("step %d: got %s, want %s", i, seen[i], want[i])
		}
	}
}
