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

// ShadowUseCase covers the shadow read/desired-write operations from §6
// (GET .../shadows, GET .../shadows/{name}, PUT .../shadows/{name}/desired).
type ShadowUseCase struct {
	reconciler *service.ShadowReconciler
	shadows    repository.ShadowRepository
	channel    broker.Channel
	bus        eventbus.Bus
	logger     *zap.Logger
}

func NewShadowUseCase(
	reconciler *service.ShadowReconciler,
	shadows repository.ShadowRepository,
	channel broker.Channel,
	bus eventbus.Bus,
	logger *zap.Logger,
) *ShadowUseCase {
	return &ShadowUseCase{reconciler: reconciler, shadows: shadows, channel: channel, bus: bus, logger: logger}
}

// ListNames returns every shadow name reported or desired for a device.
func (uc *ShadowUseCase) ListNames(ctx context.Context, deviceID string) ([]string, error) {
	return uc.shadows.ListNames(ctx, deviceID)
}

// Get returns the current reported/desired pair and its computed delta.
func (uc *ShadowUseCase) Get(ctx context.Context, deviceID, shadowName string) (*entity.ShadowState, *entity.ShadowDelta, error) {
	return uc.reconciler.Get(ctx, deviceID, shadowName)
}

// SetDesired applies an operator-submitted desired-state patch, persists
// it, and — if the resulting delta is non-empty — publishes it to the
// device on its shadow/delta topic (§4.7) and broadcasts ShadowUpdated.
func (uc *ShadowUseCase) SetDesired(ctx context.Context, fleetID, deviceID, shadowName string, patch map[string]interface{}) (*entity.ShadowState, *entity.ShadowDelta, error) {
	state, delta, err := uc.reconciler.SetDesired(ctx, deviceID, shadowName, patch)
	if err != nil {
		return nil, nil, fmt.Errorf("usecase: set desired: %w", err)
	}

	if delta != nil {
		payload, merr := json.Marshal(delta)
		if merr != nil {
			return state, delta, fmt.Errorf("usecase: marshal delta: %w", merr)
		}
		topic := broker.ShadowDeltaTopic(fleetID, deviceID)
		if perr := uc.channel.Publish(ctx, topic, payload, broker.QoS1); perr != nil {
			uc.logger.Warn("failed to publish shadow delta", zap.Error(perr),
				zap.String("device_id", deviceID), zap.String("shadow_name", shadowName))
		}
		uc.bus.Publish(ctx, eventbus.New(eventbus.ShadowUpdated, delta))
	}

	return state, delta, nil
}
