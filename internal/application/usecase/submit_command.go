// Package usecase holds the cloud-side application services the HTTP
// handlers call into, grounded on the teacher's
// application/usecase/process_message.go shape: a small struct wrapping
// repositories and domain services behind one Execute-style entry point.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/service"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
)

// SubmitCommandUseCase implements §4.1's cloud-side half of the pipeline:
// build an envelope, run it through the active cloud intent parser (which
// may decline and leave parsed_intent empty — the agent's local parser is
// the fallback), persist, and publish on the device's command/request
// topic.
type SubmitCommandUseCase struct {
	commands repository.CommandRepository
	devices  repository.DeviceRepository
	parser   service.IntentParser // nil ⇒ rule engine/cloud LLM disabled, agent parses alone
	channel  broker.Channel
	bus      eventbus.Bus
	logger   *zap.Logger
}

func NewSubmitCommandUseCase(
	commands repository.CommandRepository,
	devices repository.DeviceRepository,
	parser service.IntentParser,
	channel broker.Channel,
	bus eventbus.Bus,
	logger *zap.Logger,
) *SubmitCommandUseCase {
	return &SubmitCommandUseCase{
		commands: commands,
		devices:  devices,
		parser:   parser,
		channel:  channel,
		bus:      bus,
		logger:   logger,
	}
}

// SubmitCommandInput is the REST request shape (§6 "POST /api/v1/commands").
type SubmitCommandInput struct {
	FleetID     string
	DeviceID    string
	Command     string
	InitiatedBy string
}

// Execute builds, persists, and publishes a CommandEnvelope, returning it
// for the caller to echo back to the operator.
func (uc *SubmitCommandUseCase) Execute(ctx context.Context, in SubmitCommandInput) (*entity.CommandEnvelope, error) {
	exists, err := uc.devices.Exists(ctx, in.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("usecase: check device: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("usecase: unknown device %q", in.DeviceID)
	}

	env, err := entity.NewCommandEnvelope(in.FleetID, in.DeviceID, in.Command, in.InitiatedBy)
	if err != nil {
		return nil, fmt.Errorf("usecase: build envelope: %w", err)
	}

	if uc.parser != nil {
		intent, perr := uc.parser.Parse(ctx, in.Command)
		if perr != nil {
			uc.logger.Warn("cloud intent parser failed, leaving envelope unparsed",
				zap.Error(perr), zap.String("parser", uc.parser.Name()))
		} else if intent != nil {
			env.ParsedIntent = intent
		}
	}

	if err := uc.commands.SaveEnvelope(ctx, env); err != nil {
		return nil, fmt.Errorf("usecase: persist envelope: %w", err)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("usecase: marshal envelope: %w", err)
	}
	topic := broker.CommandRequestTopic(env.FleetID, env.DeviceID)
	if err := uc.channel.Publish(ctx, topic, payload, broker.QoS1); err != nil {
		return nil, fmt.Errorf("usecase: publish envelope: %w", err)
	}

	uc.bus.Publish(ctx, eventbus.New(eventbus.CommandDispatched, env))
	return env, nil
}
