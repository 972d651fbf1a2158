package entity

import (
	"time"

	"github.com/google/uuid"
)

// CommandEnvelope is the cloud-originated command wrapped in metadata for
// broker transit (§3). It is created once at cloud ingress, immutable once
// published, and referenced by CorrelationID for the lifetime of its
// eventual response.
type CommandEnvelope struct {
	ID              string        `json:"id"`
	FleetID         string        `json:"fleet_id"`
	DeviceID        string        `json:"device_id"`
	NaturalLanguage string        `json:"natural_language"`
	ParsedIntent    *ParsedIntent `json:"parsed_intent,omitempty"`
	CorrelationID   string        `json:"correlation_id"`
	InitiatedBy     string        `json:"initiated_by"`
	CreatedAt       time.Time     `json:"created_at"`
	TimeoutSecs     int           `json:"timeout_secs"`
}

// DefaultTimeoutSecs is applied when a caller does not specify one (§3).
const DefaultTimeoutSecs = 30

// NewCommandEnvelope constructs an envelope with a fresh, time-sortable ID
// and correlation ID (uuid.NewV7 embeds a millisecond timestamp, matching
// §3's "time-sortable globally unique identifier").
func NewCommandEnvelope(fleetID, deviceID, naturalLanguage, initiatedBy string) (*CommandEnvelope, error) {
	if fleetID == "" {
		return nil, ErrInvalidFleetID
	}
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}
	if naturalLanguage == "" {
		return nil, ErrEmptyCommandText
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	correlation, err := uuid.NewV7()
	if err != nil {
		correlation = uuid.New()
	}

	return &CommandEnvelope{
		ID:              id.String(),
		FleetID:         fleetID,
		DeviceID:        deviceID,
		NaturalLanguage: naturalLanguage,
		CorrelationID:   correlation.String(),
		InitiatedBy:     initiatedBy,
		CreatedAt:       time.Now(),
		TimeoutSecs:     DefaultTimeoutSecs,
	}, nil
}
