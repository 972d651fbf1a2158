package entity

import "time"

// Heartbeat is issued unilaterally by the edge agent at a configurable
// interval (§3, §4.5).
type Heartbeat struct {
	DeviceID     string    `json:"device_id"`
	FleetID      string    `json:"fleet_id"`
	UptimeSecs   int64     `json:"uptime_secs"`
	OllamaStatus string    `json:"ollama_status"`
	CANStatus    string    `json:"can_status"`
	AgentVersion string    `json:"agent_version"`
	Timestamp    time.Time `json:"timestamp"`
}
