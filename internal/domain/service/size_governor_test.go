package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
)

func TestGovern_SmallResponseUnchanged(t *testing.T) {
	resp := &entity.CommandResponse{
		CommandID:     "cmd-1",
		CorrelationID: "corr-1",
		DeviceID:      "veh-1",
		Status:        entity.StatusCompleted,
		ResponseText:  "ok",
		RespondedAt:   time.Now(),
	}

	b, err := Govern(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b) > MaxPayloadBytes {
		t.Fatalf("payload exceeds ceiling: %d bytes", len(b))
	}
	if resp.Truncated {
		t.Error("a small response should not be marked truncated")
	}

	var decoded entity.CommandResponse
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("governed payload must stay valid JSON: %v", err)
	}
	if decoded.Status != entity.StatusCompleted || decoded.CorrelationID != "corr-1" {
		t.Error("status and correlation_id must be preserved for a small response")
	}
}

func TestGovern_TrimsOversizePagedArray(t *testing.T) {
	entries := make([]interface{}, 0, 5000)
	for i := 0; i < 5000; i++ {
		entries = append(entries, strings.Repeat("x", 100))
	}
	resp := &entity.CommandResponse{
		CommandID:     "cmd-2",
		CorrelationID: "corr-2",
		DeviceID:      "veh-1",
		Status:        entity.StatusCompleted,
		ResponseData:  map[string]interface{}{"entries": entries},
		RespondedAt:   time.Now(),
	}

	b, err := Govern(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b) > MaxPayloadBytes {
		t.Fatalf("payload still exceeds ceiling after trimming: %d bytes", len(b))
	}

	trimmed, ok := resp.ResponseData["entries"].([]interface{})
	if !ok || len(trimmed) >= len(entries) {
		t.Errorf("expected the entries array to shrink, got %d of %d", len(trimmed), len(entries))
	}
}

func TestGovern_NeverExceedsCeilingOnPathologicalText(t *testing.T) {
	resp := &entity.CommandResponse{
		CommandID:     "cmd-3",
		CorrelationID: "corr-3",
		DeviceID:      "veh-1",
		Status:        entity.StatusCompleted,
		ResponseText:  strings.Repeat("a", MaxPayloadBytes*2),
		RespondedAt:   time.Now(),
	}

	b, err := Govern(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b) > MaxPayloadBytes {
		t.Fatalf("payload exceeds ceiling: %d bytes", len(b))
	}
	if !resp.Truncated {
		t.Error("a response reduced by text truncation must be marked Truncated")
	}
}

func TestGovern_StatusAndCorrelationIDNeverChange(t *testing.T) {
	resp := &entity.CommandResponse{
		CommandID:     "cmd-4",
		CorrelationID: "corr-4",
		DeviceID:      "veh-1",
		Status:        entity.StatusCompleted,
		ResponseText:  strings.Repeat("b", MaxPayloadBytes*2),
		RespondedAt:   time.Now(),
	}

	if _, err := Govern(resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != entity.StatusCompleted {
		t.Errorf("status must never change, got %s", resp.Status)
	}
	if resp.CorrelationID != "corr-4" {
		t.Errorf("correlation_id must never change, got %s", resp.CorrelationID)
	}
}
