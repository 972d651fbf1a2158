package service

import (
	"context"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
)

// ShadowReconciler owns the merge + delta-computation policy for shadow
// state (§4.7). It is the only writer of ShadowState through the
// repository, keeping the shallow-merge / deep-equality rules in one
// place rather than scattered across the bridge and the agent runtime.
type ShadowReconciler struct {
	repo repository.ShadowRepository
}

// NewShadowReconciler wires a reconciler against its backing repository.
func NewShadowReconciler(repo repository.ShadowRepository) *ShadowReconciler {
	return &ShadowReconciler{repo: repo}
}

// ApplyReported merges a device-originating reported patch (§4.6 "Reported
// shadow" ingest) and returns the delta to publish back to the device, or
// nil when the device has already converged.
func (r *ShadowReconciler) ApplyReported(ctx context.Context, deviceID, shadowName string, patch map[string]interface{}) (*entity.ShadowDelta, error) {
	shadow, err := r.repo.Find(ctx, deviceID, shadowName)
	if err != nil {
		return nil, err
	}
	if shadow == nil {
		shadow = entity.NewShadowState(deviceID, shadowName)
	}

	shadow.MergeReported(patch)

	if err := r.repo.Save(ctx, shadow); err != nil {
		return nil, err
	}

	return shadow.Delta(), nil
}

// SetDesired applies a cloud-originating desired update (operator PUT on
// .../shadows/{name}/desired) and returns the resulting delta.
func (r *ShadowReconciler) SetDesired(ctx context.Context, deviceID, shadowName string, patch map[string]interface{}) (*entity.ShadowState, *entity.ShadowDelta, error) {
	shadow, err := r.repo.Find(ctx, deviceID, shadowName)
	if err != nil {
		return nil, nil, err
	}
	if shadow == nil {
		shadow = entity.NewShadowState(deviceID, shadowName)
	}

	shadow.SetDesired(patch)

	if err := r.repo.Save(ctx, shadow); err != nil {
		return nil, nil, err
	}

	return shadow, shadow.Delta(), nil
}

// Get returns the current shadow pair plus its computed delta, for the
// GET .../shadows/{name} read path (§6).
func (r *ShadowReconciler) Get(ctx context.Context, deviceID, shadowName string) (*entity.ShadowState, *entity.ShadowDelta, error) {
	shadow, err := r.repo.Find(ctx, deviceID, shadowName)
	if err != nil {
		return nil, nil, err
	}
	if shadow == nil {
		shadow = entity.NewShadowState(deviceID, shadowName)
	}
	return shadow, shadow.Delta(), nil
}
