// Package models holds the GORM row types behind the optional database
// mirror (§6 "Persisted state", §9 "Dual-mode persistence"): five tables
// keyed on device_id/command_id, with JSON columns for intent/data.
package models

import "time"

// DeviceModel mirrors entity.DeviceRecord.
type DeviceModel struct {
	DeviceID      string `gorm:"primaryKey;size:64"`
	FleetID       string `gorm:"index;size:64;not null"`
	Status        string `gorm:"size:32"`
	HardwareType  string `gorm:"size:64"`
	VIN           string `gorm:"size:32"`
	LastHeartbeat *time.Time
	Metadata      string `gorm:"type:text"` // JSON-encoded map
}

func (DeviceModel) TableName() string { return "devices" }

// CommandModel mirrors entity.CommandEnvelope plus its eventual
// entity.CommandResponse, kept in one row keyed by the envelope ID.
type CommandModel struct {
	CommandID       string `gorm:"primaryKey;size:64"`
	CorrelationID   string `gorm:"index;size:64"`
	FleetID         string `gorm:"size:64"`
	DeviceID        string `gorm:"index;size:64"`
	NaturalLanguage string `gorm:"type:text"`
	ParsedIntent    string `gorm:"type:text"` // JSON-encoded ParsedIntent
	InitiatedBy     string `gorm:"size:128"`
	TimeoutSecs     int
	CreatedAt       time.Time

	Status        string `gorm:"size:32"`
	InferenceTier string `gorm:"size:32"`
	ResponseText  string `gorm:"type:text"`
	ResponseData  string `gorm:"type:text"` // JSON-encoded map
	LatencyMs     int64
	RespondedAt   *time.Time
	Error         string `gorm:"type:text"`
	Truncated     bool
}

func (CommandModel) TableName() string { return "commands" }

// TelemetryModel mirrors entity.TelemetryReading.
type TelemetryModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	DeviceID     string `gorm:"index;size:64"`
	Time         time.Time
	MetricName   string `gorm:"size:128"`
	ValueNumeric *float64
	ValueText    *string
	ValueJSON    string `gorm:"type:text"`
	Unit         string `gorm:"size:32"`
	Source       string `gorm:"size:32"`
}

func (TelemetryModel) TableName() string { return "telemetry_readings" }

// HeartbeatModel mirrors entity.Heartbeat.
type HeartbeatModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	DeviceID     string `gorm:"index;size:64"`
	FleetID      string `gorm:"size:64"`
	UptimeSecs   int64
	OllamaStatus string `gorm:"size:32"`
	CANStatus    string `gorm:"size:32"`
	AgentVersion string `gorm:"size:32"`
	Timestamp    time.Time
}

func (HeartbeatModel) TableName() string { return "heartbeats" }

// ShadowModel mirrors entity.ShadowState.
type ShadowModel struct {
	DeviceID    string `gorm:"primaryKey;size:64"`
	ShadowName  string `gorm:"primaryKey;size:64"`
	Reported    string `gorm:"type:text"` // JSON-encoded map
	Desired     string `gorm:"type:text"` // JSON-encoded map
	Version     int64
	LastUpdated time.Time
}

func (ShadowModel) TableName() string { return "device_shadows" }
