// Package broker is the capability layer hiding the underlying pub/sub
// transport behind publish/subscribe primitives, plus the rigid topic
// schema from §4.4. gorilla/websocket carries the wire bytes between
// cloud and edge (no MQTT broker dependency is wired into this module —
// see DESIGN.md for why); the topic abstraction above it is
// transport-agnostic, so an MQTT client could be swapped in later
// without touching callers.
package broker

import (
	"fmt"
	"strings"
)

// QoS mirrors the two delivery guarantees the topic schema requires
// (§4.4): QoS1 for commands/responses, QoS0 for heartbeats/telemetry.
type QoS int

const (
	QoS0 QoS = iota
	QoS1
)

// MessageClass is what an inbound message classifies to by topic pattern
// before dispatch (§4.4).
type MessageClass string

const (
	ClassCommand     MessageClass = "command"
	ClassShadowDelta MessageClass = "shadow_delta"
	ClassConfigUpdate MessageClass = "config_update"
	ClassUnknown     MessageClass = "unknown"
)

// ReceiveBufferBytes is the client-side receive buffer floor, sized with
// headroom over the broker's 128 KiB payload ceiling (§4.4).
const ReceiveBufferBytes = 256 * 1024

// Device-targeted topic builders (cloud<->device, one per device).

func CommandRequestTopic(fleetID, deviceID string) string {
	return fmt.Sprintf("fleet/%s/%s/command/request", fleetID, deviceID)
}

func CommandResponseTopic(fleetID, deviceID string) string {
	return fmt.Sprintf("fleet/%s/%s/command/response", fleetID, deviceID)
}

func CommandAckTopic(fleetID, deviceID string) string {
	return fmt.Sprintf("fleet/%s/%s/command/ack", fleetID, deviceID)
}

func HeartbeatTopic(fleetID, deviceID string) string {
	return fmt.Sprintf("fleet/%s/%s/heartbeat/ping", fleetID, deviceID)
}

func TelemetryTopic(fleetID, deviceID, source string) string {
	return fmt.Sprintf("fleet/%s/%s/telemetry/%s", fleetID, deviceID, source)
}

func ShadowUpdateTopic(fleetID, deviceID string) string {
	return fmt.Sprintf("fleet/%s/%s/shadow/update", fleetID, deviceID)
}

func ShadowDeltaTopic(fleetID, deviceID string) string {
	return fmt.Sprintf("fleet/%s/%s/shadow/delta", fleetID, deviceID)
}

// Fleet-broadcast topic builders.

func BroadcastCommandTopic(fleetID string) string {
	return fmt.Sprintf("fleet/%s/broadcast/command/request", fleetID)
}

func BroadcastConfigTopic(fleetID string) string {
	return fmt.Sprintf("fleet/%s/broadcast/config/update", fleetID)
}

// Wildcard filters the cloud bridge subscribes with, one per fleet
// (§4.6): every device's responses, heartbeats, telemetry, and reported
// shadow updates.
func WildcardResponseFilter(fleetID string) string {
	return fmt.Sprintf("fleet/%s/+/command/response", fleetID)
}

func WildcardHeartbeatFilter(fleetID string) string {
	return fmt.Sprintf("fleet/%s/+/heartbeat/ping", fleetID)
}

func WildcardTelemetryFilter(fleetID string) string {
	return fmt.Sprintf("fleet/%s/+/telemetry/#", fleetID)
}

func WildcardShadowUpdateFilter(fleetID string) string {
	return fmt.Sprintf("fleet/%s/+/shadow/update", fleetID)
}

// Device-side subscription filters (§4.5 startup sequence).
func DeviceCommandFilter(fleetID, deviceID string) string {
	return CommandRequestTopic(fleetID, deviceID)
}

func DeviceShadowDeltaFilter(fleetID, deviceID string) string {
	return ShadowDeltaTopic(fleetID, deviceID)
}

func DeviceConfigFilter(fleetID, deviceID string) string {
	return fmt.Sprintf("fleet/%s/%s/config/update", fleetID, deviceID)
}

// DeviceIDFromTopic extracts the device segment from a device-targeted
// topic (fleet/{fleet_id}/{device_id}/...). It returns false for
// fleet-broadcast topics, which carry no single device.
func DeviceIDFromTopic(topic string) (string, bool) {
	parts := strings.SplitN(topic, "/", 4)
	if len(parts) < 3 || parts[0] != "fleet" {
		return "", false
	}
	if parts[2] == "broadcast" {
		return "", false
	}
	return parts[2], true
}

// Classify maps a concrete topic to its MessageClass by suffix, matching
// the schema from §4.4 regardless of wildcard expansion on the way in.
func Classify(topic string) MessageClass {
	switch {
	case strings.HasSuffix(topic, "/command/request"):
		return ClassCommand
	case strings.HasSuffix(topic, "/shadow/delta"):
		return ClassShadowDelta
	case strings.HasSuffix(topic, "/config/update"):
		return ClassConfigUpdate
	default:
		return ClassUnknown
	}
}
