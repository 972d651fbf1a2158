// Package eventbus is the bounded in-process publish-subscribe bus that
// fans cloud state changes out to live observers (§4.9). Producers are
// every REST handler and every bridge ingest path; subscribers are live
// observer sessions consuming at their own pace. A slow subscriber that
// overflows the buffer is dropped, not blocked — it reconnects and
// re-seeds from the REST list endpoints (§9 "back-pressure").
package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type tags an event so subscribers can pattern-match without a type
// switch on the payload (§4.9).
type Type string

const (
	CommandDispatched   Type = "command_dispatched"
	CommandResponse     Type = "command_response"
	DeviceHeartbeat     Type = "device_heartbeat"
	DeviceStatusChanged Type = "device_status_changed"
	DeviceProvisioned   Type = "device_provisioned"
	TelemetryIngested   Type = "telemetry_ingested"
	ShadowUpdated       Type = "shadow_updated"
)

// Event is the envelope every producer publishes.
type Event struct {
	EventType Type      `json:"type"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload"`
}

// New stamps the current time onto a new Event.
func New(t Type, payload any) Event {
	return Event{EventType: t, At: time.Now(), Payload: payload}
}

// Handler receives dispatched events; it must not block for long, since
// dispatch fans out to every handler of a type concurrently but the bus
// itself is single-consumer on eventChan.
type Handler func(ctx context.Context, event Event)

// Bus is the publish/subscribe contract. "*" subscribes to every type.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType Type, handler Handler)
	Close()
}

const DefaultCapacity = 256

type wrapped struct {
	ctx   context.Context
	event Event
}

// InMemoryBus is the bus's only implementation: a bounded channel drained
// by one dispatch goroutine, fanning each event out to its type's
// handlers plus any wildcard handlers.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	wildcard []Handler
	eventCh  chan wrapped
	dropped  uint64
	closed   bool
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewInMemoryBus creates a bus with the given buffer capacity and starts
// its dispatch loop.
func NewInMemoryBus(logger *zap.Logger, capacity int) *InMemoryBus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &InMemoryBus{
		handlers: make(map[Type][]Handler),
		eventCh:  make(chan wrapped, capacity),
		logger:   logger,
	}
	b.wg.Add(1)
	go b.dispatchLoop()
	return b
}

// Publish never blocks: a full buffer drops the event and counts it.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	select {
	case b.eventCh <- wrapped{ctx: ctx, event: event}:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		b.logger.Warn("event bus buffer full, dropping event",
			zap.String("type", string(event.EventType)))
	}
}

// Subscribe registers a handler for eventType, or every type when
// eventType is "*".
func (b *InMemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if eventType == "*" {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Dropped reports how many events were discarded due to a full buffer.
// No HTTP route exposes the count.
func (b *InMemoryBus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Close stops accepting new handlers' effects and drains in-flight
// dispatch before returning.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	b.closed = true
	close(b.eventCh)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *InMemoryBus) dispatchLoop() {
	defer b.wg.Done()
	for w := range b.eventCh {
		b.dispatch(w.ctx, w.event)
	}
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.EventType])+len(b.wildcard))
	handlers = append(handlers, b.handlers[event.EventType]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						zap.String("type", string(event.EventType)),
						zap.Any("panic", r))
				}
			}()
			h(ctx, event)
		}(h)
	}
	wg.Wait()
}
