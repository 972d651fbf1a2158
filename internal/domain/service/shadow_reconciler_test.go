package service

import (
	"context"
	"testing"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/persistence"
)

func TestShadowReconciler_SetDesiredThenApplyReportedConverges(t *testing.T) {
	repo := persistence.NewMemoryShadowRepository()
	r := NewShadowReconciler(repo)

	_, delta, err := r.SetDesired(context.Background(), "veh-1", "ota", map[string]interface{}{"version": "2.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta == nil || delta.Delta["version"] != "2.0.0" {
		t.Fatalf("expected a pending delta after setting desired, got %+v", delta)
	}

	delta, err = r.ApplyReported(context.Background(), "veh-1", "ota", map[string]interface{}{"version": "2.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta != nil {
		t.Errorf("expected nil delta once reported converges with desired, got %+v", delta)
	}
}

func TestShadowReconciler_ApplyReportedOnFreshDevice(t *testing.T) {
	repo := persistence.NewMemoryShadowRepository()
	r := NewShadowReconciler(repo)

	delta, err := r.ApplyReported(context.Background(), "veh-2", "status", map[string]interface{}{"uptime_secs": 120})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta != nil {
		t.Errorf("no desired state yet, so no delta should be emitted, got %+v", delta)
	}

	state, _, err := r.Get(context.Background(), "veh-2", "status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Reported["uptime_secs"] != 120 {
		t.Errorf("expected reported state to persist, got %+v", state.Reported)
	}
}

func TestShadowReconciler_GetOnUnknownShadowReturnsEmptyNotError(t *testing.T) {
	repo := persistence.NewMemoryShadowRepository()
	r := NewShadowReconciler(repo)

	state, delta, err := r.Get(context.Background(), "veh-3", "never_seen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state == nil {
		t.Fatal("expected an empty shadow state, not nil")
	}
	if delta != nil {
		t.Errorf("expected nil delta for an empty shadow, got %+v", delta)
	}
}
