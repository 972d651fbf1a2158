package agent

import "testing"

func TestLocalShadowStore_MergeShallowOverwrites(t *testing.T) {
	s := newLocalShadowStore()

	got := s.merge("agent_status", map[string]interface{}{"tool_count": 2, "uptime_secs": 10})
	if got["tool_count"] != 2 || got["uptime_secs"] != 10 {
		t.Fatalf("unexpected merge result: %+v", got)
	}

	got = s.merge("agent_status", map[string]interface{}{"uptime_secs": 20})
	if got["tool_count"] != 2 {
		t.Errorf("expected unrelated key to survive a partial merge, got %+v", got)
	}
	if got["uptime_secs"] != 20 {
		t.Errorf("expected the newer value to overwrite, got %+v", got)
	}
}

func TestLocalShadowStore_SnapshotIsIndependentCopy(t *testing.T) {
	s := newLocalShadowStore()
	s.merge("ota", map[string]interface{}{"version": "1.0.0"})

	snap := s.snapshot("ota")
	snap["version"] = "mutated"

	again := s.snapshot("ota")
	if again["version"] != "1.0.0" {
		t.Errorf("mutating a snapshot must not affect the store, got %+v", again)
	}
}

func TestLocalShadowStore_SnapshotOfUnknownShadowIsEmpty(t *testing.T) {
	s := newLocalShadowStore()
	snap := s.snapshot("never_merged")
	if len(snap) != 0 {
		t.Errorf("expected an empty snapshot for an unmerged shadow, got %+v", snap)
	}
}
