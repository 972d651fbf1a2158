package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewInMemoryBus(testLogger(), 100)
	defer bus.Close()

	var received atomic.Int32
	bus.Subscribe(DeviceHeartbeat, func(ctx context.Context, ev Event) {
		received.Add(1)
	})

	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))

	time.Sleep(50 * time.Millisecond)

	if got := received.Load(); got != 3 {
		t.Errorf("expected 3 events received, got %d", got)
	}
}

func TestInMemoryBus_WildcardSubscriber(t *testing.T) {
	bus := NewInMemoryBus(testLogger(), 100)
	defer bus.Close()

	var received atomic.Int32
	bus.Subscribe("*", func(ctx context.Context, ev Event) {
		received.Add(1)
	})

	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
	bus.Publish(context.Background(), New(ShadowUpdated, nil))
	bus.Publish(context.Background(), New(CommandDispatched, nil))

	time.Sleep(50 * time.Millisecond)

	if got := received.Load(); got != 3 {
		t.Errorf("wildcard should receive all event types, got %d", got)
	}
}

func TestInMemoryBus_TypeIsolation(t *testing.T) {
	bus := NewInMemoryBus(testLogger(), 100)
	defer bus.Close()

	var heartbeats, shadows atomic.Int32
	bus.Subscribe(DeviceHeartbeat, func(ctx context.Context, ev Event) { heartbeats.Add(1) })
	bus.Subscribe(ShadowUpdated, func(ctx context.Context, ev Event) { shadows.Add(1) })

	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
	bus.Publish(context.Background(), New(ShadowUpdated, nil))

	time.Sleep(50 * time.Millisecond)

	if heartbeats.Load() != 2 {
		t.Errorf("heartbeat handler: got %d, want 2", heartbeats.Load())
	}
	if shadows.Load() != 1 {
		t.Errorf("shadow handler: got %d, want 1", shadows.Load())
	}
}

func TestInMemoryBus_FullBufferDropsWithoutBlocking(t *testing.T) {
	bus := NewInMemoryBus(testLogger(), 1)
	defer bus.Close()

	// A slow handler keeps the dispatch loop busy so the channel fills.
	release := make(chan struct{})
	bus.Subscribe(DeviceHeartbeat, func(ctx context.Context, ev Event) {
		<-release
	})

	for i := 0; i < 10; i++ {
		bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
	}
	close(release)

	if bus.Dropped() == 0 {
		t.Error("expected at least one dropped event when buffer saturates")
	}
}

func TestInMemoryBus_ClosePreventsPublish(t *testing.T) {
	bus := NewInMemoryBus(testLogger(), 100)
	bus.Close()

	// Must not panic after close.
	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
}

func TestInMemoryBus_HandlerPanicRecovery(t *testing.T) {
	bus := NewInMemoryBus(testLogger(), 100)
	defer bus.Close()

	var safeReceived atomic.Int32
	bus.Subscribe(DeviceHeartbeat, func(ctx context.Context, ev Event) {
		panic("handler crash")
	})
	bus.Subscribe(DeviceHeartbeat, func(ctx context.Context, ev Event) {
		safeReceived.Add(1)
	})

	bus.Publish(context.Background(), New(DeviceHeartbeat, nil))
	time.Sleep(50 * time.Millisecond)

	if safeReceived.Load() != 1 {
		t.Errorf("sibling handler should still run after a panic, got %d", safeReceived.Load())
	}
}

func TestInMemoryBus_ConcurrentPublish(t *testing.T) {
	bus := NewInMemoryBus(testLogger(), 1000)
	defer bus.Close()

	var received atomic.Int32
	bus.Subscribe(TelemetryIngested, func(ctx context.Context, ev Event) {
		received.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), New(TelemetryIngested, nil))
		}()
	}
	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	if got := received.Load(); got != 100 {
		t.Errorf("expected 100 concurrent events, got %d", got)
	}
}
