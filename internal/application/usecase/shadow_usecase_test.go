package usecase

import (
	"context"
	"testing"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/service"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/broker"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/eventbus"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/persistence"
)

func newTestShadowUseCase() (*ShadowUseCase, broker.Channel) {
	repo := persistence.NewMemoryShadowRepository()
	reconciler := service.NewShadowReconciler(repo)
	channel := broker.NewInMemoryChannel()
	bus := eventbus.NewInMemoryBus(usecaseTestLogger(), eventbus.DefaultCapacity)
	return NewShadowUseCase(reconciler, repo, channel, bus, usecaseTestLogger()), channel
}

func TestShadowUseCase_SetDesired_PublishesDeltaOnShadowTopic(t *testing.T) {
	uc, channel := newTestShadowUseCase()
	ctx := context.Background()

	sub, err := channel.Subscribe(ctx, broker.ShadowDeltaTopic("fleet-1", "veh-1"), broker.QoS1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, delta, err := uc.SetDesired(ctx, "fleet-1", "veh-1", "ota", map[string]interface{}{"version": "3.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta == nil {
		t.Fatal("expected a non-nil delta for a fresh desired patch")
	}

	select {
	case msg := <-sub:
		if msg.Topic != broker.ShadowDeltaTopic("fleet-1", "veh-1") {
			t.Errorf("unexpected topic: %s", msg.Topic)
		}
	default:
		t.Error("expected the delta to be published synchronously")
	}
}

func TestShadowUseCase_SetDesired_NoPublishWhenConverged(t *testing.T) {
	repo := persistence.NewMemoryShadowRepository()
	reconciler := service.NewShadowReconciler(repo)
	channel := broker.NewInMemoryChannel()
	bus := eventbus.NewInMemoryBus(usecaseTestLogger(), eventbus.DefaultCapacity)
	uc := NewShadowUseCase(reconciler, repo, channel, bus, usecaseTestLogger())
	ctx := context.Background()

	sub, err := channel.Subscribe(ctx, broker.ShadowDeltaTopic("fleet-1", "veh-1"), broker.QoS1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := uc.SetDesired(ctx, "fleet-1", "veh-1", "ota", map[string]interface{}{"version": "3.0.0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-sub // drain the first publish

	state, err := repo.Find(ctx, "veh-1", "ota")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state.MergeReported(map[string]interface{}{"version": "3.0.0"})
	if err := repo.Save(ctx, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, delta, err := uc.SetDesired(ctx, "fleet-1", "veh-1", "ota", map[string]interface{}{"version": "3.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta != nil {
		t.Errorf("expected no delta once reported matches desired, got %+v", delta)
	}
}

func TestShadowUseCase_ListNames(t *testing.T) {
	uc, _ := newTestShadowUseCase()
	ctx := context.Background()

	uc.SetDesired(ctx, "fleet-1", "veh-1", "ota", map[string]interface{}{"version": "1.0.0"})
	uc.SetDesired(ctx, "fleet-1", "veh-1", "agent_config", map[string]interface{}{"heartbeat_interval_secs": 30})

	names, err := uc.ListNames(ctx, "veh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("expected two shadow names, got %+v", names)
	}
}
