package usecase

import (
	"context"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
)

// CommandQueryUseCase covers the read-only command listing/detail
// operations from §6 (GET /api/v1/commands, GET /api/v1/commands/{id}).
type CommandQueryUseCase struct {
	commands repository.CommandRepository
}

func NewCommandQueryUseCase(commands repository.CommandRepository) *CommandQueryUseCase {
	return &CommandQueryUseCase{commands: commands}
}

// CommandDetail pairs an envelope with its eventual response, if any has
// arrived yet.
type CommandDetail struct {
	Envelope *entity.CommandEnvelope
	Response *entity.CommandResponse
}

func (uc *CommandQueryUseCase) List(ctx context.Context, deviceID string) ([]*entity.CommandEnvelope, error) {
	return uc.commands.FindAll(ctx, deviceID)
}

func (uc *CommandQueryUseCase) Get(ctx context.Context, commandID string) (*CommandDetail, error) {
	env, err := uc.commands.FindEnvelope(ctx, commandID)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, nil
	}
	resp, err := uc.commands.FindResponse(ctx, commandID)
	if err != nil {
		return nil, err
	}
	return &CommandDetail{Envelope: env, Response: resp}, nil
}

// TelemetryQueryUseCase covers GET /api/v1/devices/{id}/telemetry.
type TelemetryQueryUseCase struct {
	telemetry repository.TelemetryRepository
}

func NewTelemetryQueryUseCase(telemetry repository.TelemetryRepository) *TelemetryQueryUseCase {
	return &TelemetryQueryUseCase{telemetry: telemetry}
}

func (uc *TelemetryQueryUseCase) List(ctx context.Context, deviceID string, limit int) ([]*entity.TelemetryReading, error) {
	return uc.telemetry.FindAll(ctx, deviceID, limit)
}
