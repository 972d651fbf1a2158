package entity

import (
	"encoding/json"
	"time"
)

// TelemetrySource identifies where a reading originated (§3).
type TelemetrySource string

const (
	SourceObd2   TelemetrySource = "obd2"
	SourceSystem TelemetrySource = "system"
	SourceCanbus TelemetrySource = "canbus"
)

// TelemetryReading is a single timestamped measurement reported by a
// device. Exactly one of the three value fields is populated (§3).
type TelemetryReading struct {
	DeviceID    string          `json:"device_id"`
	Time        time.Time       `json:"time"`
	MetricName  string          `json:"metric_name"`
	ValueNumeric *float64       `json:"value_numeric,omitempty"`
	ValueText   *string         `json:"value_text,omitempty"`
	ValueJSON   json.RawMessage `json:"value_json,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Source      TelemetrySource `json:"source"`
}
