package entity

import "testing"

func TestComputeDelta_MissingKeyIncluded(t *testing.T) {
	desired := map[string]interface{}{"ota_version": "2.4.0"}
	reported := map[string]interface{}{}

	delta := ComputeDelta(desired, reported)
	if delta["ota_version"] != "2.4.0" {
		t.Errorf("expected missing key to appear in delta, got %v", delta)
	}
}

func TestComputeDelta_MismatchedValueIncluded(t *testing.T) {
	desired := map[string]interface{}{"fan_speed": 3}
	reported := map[string]interface{}{"fan_speed": 1}

	delta := ComputeDelta(desired, reported)
	if delta["fan_speed"] != 3 {
		t.Errorf("expected mismatched value to appear in delta, got %v", delta)
	}
}

func TestComputeDelta_ConvergedValueExcluded(t *testing.T) {
	desired := map[string]interface{}{"fan_speed": 3}
	reported := map[string]interface{}{"fan_speed": 3}

	delta := ComputeDelta(desired, reported)
	if len(delta) != 0 {
		t.Errorf("expected no delta once converged, got %v", delta)
	}
}

func TestComputeDelta_ReportedOnlyKeyNeverIncluded(t *testing.T) {
	desired := map[string]interface{}{}
	reported := map[string]interface{}{"odometer_km": 42000}

	delta := ComputeDelta(desired, reported)
	if len(delta) != 0 {
		t.Errorf("keys present only in reported must never appear in delta, got %v", delta)
	}
}

func TestComputeDelta_DeepStructuralEquality(t *testing.T) {
	desired := map[string]interface{}{"thresholds": map[string]interface{}{"temp": 90, "pressure": 30}}
	reported := map[string]interface{}{"thresholds": map[string]interface{}{"temp": 90, "pressure": 30}}

	delta := ComputeDelta(desired, reported)
	if len(delta) != 0 {
		t.Errorf("structurally equal nested objects should not appear in delta, got %v", delta)
	}

	reported["thresholds"] = map[string]interface{}{"temp": 90, "pressure": 31}
	delta = ComputeDelta(desired, reported)
	if len(delta) != 1 {
		t.Errorf("nested mismatch should produce exactly one delta key, got %v", delta)
	}
}

func TestComputeDelta_NilIsDistinctFromAbsent(t *testing.T) {
	desired := map[string]interface{}{"override": nil}
	reported := map[string]interface{}{}

	delta := ComputeDelta(desired, reported)
	if _, ok := delta["override"]; !ok {
		t.Error("an explicit nil desired value must be treated as present, not skipped")
	}
}

func TestShadowState_DeltaNilWhenConverged(t *testing.T) {
	s := NewShadowState("veh-1", "ota")
	s.SetDesired(map[string]interface{}{"version": "1.0.0"})
	s.MergeReported(map[string]interface{}{"version": "1.0.0"})

	if d := s.Delta(); d != nil {
		t.Errorf("expected nil delta once converged, got %+v", d)
	}
}

func TestShadowState_VersionMonotonic(t *testing.T) {
	s := NewShadowState("veh-1", "ota")
	s.SetDesired(map[string]interface{}{"version": "1.0.0"})
	if s.Version != 1 {
		t.Fatalf("version after first write: got %d, want 1", s.Version)
	}
	s.MergeReported(map[string]interface{}{"version": "0.9.0"})
	if s.Version != 2 {
		t.Errorf("version after second write: got %d, want 2", s.Version)
	}
}
