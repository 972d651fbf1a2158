// Package service hosts the domain services that sit between entities and
// infrastructure: the per-envelope state machine, the shadow reconciler,
// the response size governor, and the device heartbeat monitor.
package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// EnvelopeState is one stage of a single command's journey through the
// executor (§4.2 "State machine for a single envelope").
type EnvelopeState string

const (
	StateReceived   EnvelopeState = "received"
	StateParsed     EnvelopeState = "parsed"
	StateDispatched EnvelopeState = "dispatched"
	StateExecuted   EnvelopeState = "executed" // Tool|Shell|Reply branch taken
	StateAssembled  EnvelopeState = "assembled"
	StateSized      EnvelopeState = "sized"
	StatePublished  EnvelopeState = "published"
	StateFailed     EnvelopeState = "failed" // any transition may short-circuit here
)

// validTransitions encodes the straight-line pipeline; every state may
// also transition to StateFailed, added programmatically below.
var validTransitions = map[EnvelopeState]map[EnvelopeState]bool{
	StateReceived:   {StateParsed: true},
	StateParsed:     {StateDispatched: true},
	StateDispatched: {StateExecuted: true},
	StateExecuted:   {StateAssembled: true},
	StateAssembled:  {StateSized: true},
	StateSized:      {StatePublished: true},
	StatePublished:  {},
	StateFailed:     {},
}

func init() {
	for from, targets := range validTransitions {
		if from == StateFailed {
			continue
		}
		targets[StateFailed] = true
	}
}

// EnvelopeStateMachine tracks one envelope's progress and calls its
// listeners on every transition. There are no retries (§4.2): a Failed
// transition is final for that envelope.
type EnvelopeStateMachine struct {
	mu        sync.RWMutex
	state     EnvelopeState
	logger    *zap.Logger
	listeners []func(from, to EnvelopeState)
}

// NewEnvelopeStateMachine starts a machine in StateReceived.
func NewEnvelopeStateMachine(logger *zap.Logger) *EnvelopeStateMachine {
	return &EnvelopeStateMachine{state: StateReceived, logger: logger}
}

// State returns the current stage.
func (m *EnvelopeStateMachine) State() EnvelopeState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Transition moves to `to`, rejecting any move not present in
// validTransitions.
func (m *EnvelopeStateMachine) Transition(to EnvelopeState) error {
	m.mu.Lock()
	from := m.state
	allowed, ok := validTransitions[from]
	if !ok || !allowed[to] {
		m.mu.Unlock()
		err := fmt.Errorf("invalid envelope transition: %s -> %s", from, to)
		m.logger.Error("envelope state machine violation", zap.Error(err))
		return err
	}
	m.state = to
	listeners := make([]func(from, to EnvelopeState), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
	return nil
}

// OnTransition registers a callback invoked after every successful
// transition.
func (m *EnvelopeStateMachine) OnTransition(fn func(from, to EnvelopeState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// IsTerminal reports whether no further transitions are possible.
func (m *EnvelopeStateMachine) IsTerminal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StatePublished || m.state == StateFailed
}
