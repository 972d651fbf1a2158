package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Message is one inbound delivery: the concrete topic it arrived on plus
// its raw bytes.
type Message struct {
	Topic   string
	Payload []byte
	QoS     QoS
}

// Channel is the two-primitive capability layer from §4.4: publish and
// subscribe, with topic-filter wildcards (`+` single-level, `#`
// multi-level, MQTT-style) resolved by the implementation.
type Channel interface {
	Publish(ctx context.Context, topic string, payload []byte, qos QoS) error
	Subscribe(ctx context.Context, topicFilter string, qos QoS) (<-chan Message, error)
	Close() error
}

// matchFilter reports whether topic satisfies an MQTT-style filter: `+`
// matches exactly one level, `#` (only valid as the final level) matches
// any number of trailing levels.
func matchFilter(filter, topic string) bool {
	fParts := strings.Split(filter, "/")
	tParts := strings.Split(topic, "/")

	for i, fp := range fParts {
		if fp == "#" {
			return true
		}
		if i >= len(tParts) {
			return false
		}
		if fp == "+" {
			continue
		}
		if fp != tParts[i] {
			return false
		}
	}
	return len(fParts) == len(tParts)
}

// subscription pairs a filter with the channel it feeds.
type subscription struct {
	filter string
	ch     chan Message
}

// InMemoryChannel is the default Channel for single-process development
// and tests: publish fans out synchronously (buffered per-subscriber) to
// every matching filter, with no network hop at all.
type InMemoryChannel struct {
	mu   sync.RWMutex
	subs []*subscription
}

// NewInMemoryChannel constructs an empty in-memory channel.
func NewInMemoryChannel() *InMemoryChannel {
	return &InMemoryChannel{}
}

func (c *InMemoryChannel) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.subs {
		if !matchFilter(s.filter, topic) {
			continue
		}
		msg := Message{Topic: topic, Payload: payload, QoS: qos}
		select {
		case s.ch <- msg:
		default:
			// Drop on a full subscriber buffer rather than block the
			// publisher; QoS1 retry is the caller's responsibility at
			// the application layer (§5 "reconnect with exponential
			// backoff", §7 Transport).
		}
	}
	return nil
}

func (c *InMemoryChannel) Subscribe(ctx context.Context, topicFilter string, qos QoS) (<-chan Message, error) {
	ch := make(chan Message, 256)
	c.mu.Lock()
	c.subs = append(c.subs, &subscription{filter: topicFilter, ch: ch})
	c.mu.Unlock()
	return ch, nil
}

func (c *InMemoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		close(s.ch)
	}
	c.subs = nil
	return nil
}

// PublishJSON is a typed helper used by every caller that has a Go value
// rather than pre-marshaled bytes; kept here rather than per-caller to
// centralize the QoS wiring the schema demands (§4.4: "typed helpers for
// every message kind").
func PublishJSON(ctx context.Context, ch Channel, topic string, v interface{}, qos QoS, marshal func(interface{}) ([]byte, error)) error {
	b, err := marshal(v)
	if err != nil {
		return fmt.Errorf("broker: marshal failed: %w", err)
	}
	return ch.Publish(ctx, topic, b, qos)
}
