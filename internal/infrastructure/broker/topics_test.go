package broker

import "testing"

func TestTopicBuilders_MatchSchema(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{CommandRequestTopic("fleet-1", "veh-1"), "fleet/fleet-1/veh-1/command/request"},
		{CommandResponseTopic("fleet-1", "veh-1"), "fleet/fleet-1/veh-1/command/response"},
		{HeartbeatTopic("fleet-1", "veh-1"), "fleet/fleet-1/veh-1/heartbeat/ping"},
		{ShadowDeltaTopic("fleet-1", "veh-1"), "fleet/fleet-1/veh-1/shadow/delta"},
		{BroadcastCommandTopic("fleet-1"), "fleet/fleet-1/broadcast/command/request"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestDeviceIDFromTopic_DeviceTargeted(t *testing.T) {
	id, ok := DeviceIDFromTopic("fleet/fleet-1/veh-1/command/response")
	if !ok || id != "veh-1" {
		t.Errorf("got (%q, %v), want (veh-1, true)", id, ok)
	}
}

func TestDeviceIDFromTopic_BroadcastHasNoDevice(t *testing.T) {
	_, ok := DeviceIDFromTopic("fleet/fleet-1/broadcast/command/request")
	if ok {
		t.Error("expected a broadcast topic to report no single device")
	}
}

func TestDeviceIDFromTopic_Malformed(t *testing.T) {
	_, ok := DeviceIDFromTopic("not-a-fleet-topic")
	if ok {
		t.Error("expected a malformed topic to report false")
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]MessageClass{
		"fleet/fleet-1/veh-1/command/request":    ClassCommand,
		"fleet/fleet-1/veh-1/shadow/delta":       ClassShadowDelta,
		"fleet/fleet-1/veh-1/config/update":      ClassConfigUpdate,
		"fleet/fleet-1/veh-1/command/response":   ClassUnknown,
	}
	for topic, want := range cases {
		if got := Classify(topic); got != want {
			t.Errorf("%q: got %s, want %s", topic, got, want)
		}
	}
}

func TestMatchFilter_SingleAndMultiLevelWildcards(t *testing.T) {
	if !matchFilter("fleet/fleet-1/+/command/response", "fleet/fleet-1/veh-1/command/response") {
		t.Error("expected + to match exactly one level")
	}
	if matchFilter("fleet/fleet-1/+/command/response", "fleet/fleet-1/veh-1/extra/command/response") {
		t.Error("+ must not match multiple levels")
	}
	if !matchFilter("fleet/fleet-1/veh-1/telemetry/#", "fleet/fleet-1/veh-1/telemetry/can/rpm") {
		t.Error("expected # to match any number of trailing levels")
	}
	if matchFilter("fleet/fleet-1/veh-1/command/response", "fleet/fleet-2/veh-1/command/response") {
		t.Error("exact segments must still match")
	}
}
