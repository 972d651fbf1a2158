package entity

import (
	"reflect"
	"time"
)

// ShadowState is the per (device, shadow_name) twin pairing last-reported
// device state with cloud-desired target state (§3, §4.7).
//
// Invariants: Version strictly increases on any write; Reported is written
// only from device-originating updates; Desired is written only from
// cloud-originating updates; both default to empty objects.
type ShadowState struct {
	DeviceID    string                 `json:"device_id"`
	ShadowName  string                 `json:"shadow_name"`
	Reported    map[string]interface{} `json:"reported"`
	Desired     map[string]interface{} `json:"desired"`
	Version     int64                  `json:"version"`
	LastUpdated time.Time              `json:"last_updated"`
}

// NewShadowState creates an empty shadow pair, version 0.
func NewShadowState(deviceID, shadowName string) *ShadowState {
	return &ShadowState{
		DeviceID:   deviceID,
		ShadowName: shadowName,
		Reported:   make(map[string]interface{}),
		Desired:    make(map[string]interface{}),
	}
}

// MergeReported applies a partial patch from the device into Reported by
// shallow top-level key union, newer overwrites (§4.7 merge policy). It
// bumps Version and stamps LastUpdated; the cloud never edits Reported
// directly, only via this entry point.
func (s *ShadowState) MergeReported(patch map[string]interface{}) {
	if s.Reported == nil {
		s.Reported = make(map[string]interface{})
	}
	for k, v := range patch {
		s.Reported[k] = v
	}
	s.Version++
	s.LastUpdated = time.Now()
}

// SetDesired replaces the cloud-desired target for one or more keys,
// shallow-merged, and bumps Version (§3: Desired is written only from
// cloud-originating updates).
func (s *ShadowState) SetDesired(patch map[string]interface{}) {
	if s.Desired == nil {
		s.Desired = make(map[string]interface{})
	}
	for k, v := range patch {
		s.Desired[k] = v
	}
	s.Version++
	s.LastUpdated = time.Now()
}

// ShadowDelta carries exactly the keys of Desired whose value differs from
// Reported by structural equality (§3, §4.7).
type ShadowDelta struct {
	DeviceID   string                 `json:"device_id"`
	ShadowName string                 `json:"shadow_name"`
	Delta      map[string]interface{} `json:"delta"`
	Version    int64                  `json:"version"`
	Timestamp  time.Time              `json:"timestamp"`
}

// ComputeDelta is the shadow reconciler's core algorithm (§4.7, §8): for
// every key k in desired, include it in the result if reported[k] is
// absent or structurally unequal. Keys present only in reported are never
// included. Primitives compare by value; objects/arrays by deep structural
// equality; nil is a distinct value from "absent".
func ComputeDelta(desired, reported map[string]interface{}) map[string]interface{} {
	delta := make(map[string]interface{})
	for k, dv := range desired {
		rv, present := reported[k]
		if !present || !reflect.DeepEqual(dv, rv) {
			delta[k] = dv
		}
	}
	return delta
}

// Delta computes and wraps ComputeDelta for this shadow's current state. It
// returns nil when the delta is empty — callers must not emit or broadcast
// in that case (§4.7: "Empty delta ⇒ no emission, no broadcast").
func (s *ShadowState) Delta() *ShadowDelta {
	d := ComputeDelta(s.Desired, s.Reported)
	if len(d) == 0 {
		return nil
	}
	return &ShadowDelta{
		DeviceID:   s.DeviceID,
		ShadowName: s.ShadowName,
		Delta:      d,
		Version:    s.Version,
		Timestamp:  time.Now(),
	}
}
