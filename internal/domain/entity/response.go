package entity

import "time"

// CommandStatus is the terminal-or-not state of a command (§3, §8).
type CommandStatus string

const (
	StatusPending    CommandStatus = "pending"
	StatusSent       CommandStatus = "sent"
	StatusProcessing CommandStatus = "processing"
	StatusCompleted  CommandStatus = "completed"
	StatusFailed     CommandStatus = "failed"
	StatusTimeout    CommandStatus = "timeout"
	StatusCancelled  CommandStatus = "cancelled"
)

// IsTerminal reports whether status is one of the four terminal states named
// in §8's invariants.
func (s CommandStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	default:
		return false
	}
}

// CommandResponse is the device-to-cloud reply to exactly one
// CommandEnvelope, matched by CorrelationID (§3, §8).
type CommandResponse struct {
	CommandID     string                 `json:"command_id"`
	CorrelationID string                 `json:"correlation_id"`
	DeviceID      string                 `json:"device_id"`
	Status        CommandStatus          `json:"status"`
	InferenceTier InferenceTier          `json:"inference_tier,omitempty"`
	ResponseText  string                 `json:"response_text,omitempty"`
	ResponseData  map[string]interface{} `json:"response_data,omitempty"`
	LatencyMs     int64                  `json:"latency_ms"`
	RespondedAt   time.Time              `json:"responded_at"`
	Error         string                 `json:"error,omitempty"`
	Truncated     bool                   `json:"truncated,omitempty"`
}

// Validate enforces the Completed/Failed ⇄ error invariant from §3.
func (r *CommandResponse) Validate() error {
	if r.Status == StatusCompleted && r.Error != "" {
		return ErrCompletedNeedsNoError
	}
	if r.Status == StatusFailed && r.Error == "" {
		return ErrFailedNeedsError
	}
	return nil
}

// NewCompletedResponse builds a terminal success response, stamping latency
// from the envelope's creation time.
func NewCompletedResponse(env *CommandEnvelope, text string, data map[string]interface{}, tier InferenceTier) *CommandResponse {
	now := time.Now()
	return &CommandResponse{
		CommandID:     env.ID,
		CorrelationID: env.CorrelationID,
		DeviceID:      env.DeviceID,
		Status:        StatusCompleted,
		InferenceTier: tier,
		ResponseText:  text,
		ResponseData:  data,
		LatencyMs:     now.Sub(env.CreatedAt).Milliseconds(),
		RespondedAt:   now,
	}
}

// NewFailedResponse builds a terminal failure response with a populated
// error, per §4.2 step 3 and the §7 propagation policy.
func NewFailedResponse(env *CommandEnvelope, errMsg string) *CommandResponse {
	now := time.Now()
	return &CommandResponse{
		CommandID:     env.ID,
		CorrelationID: env.CorrelationID,
		DeviceID:      env.DeviceID,
		Status:        StatusFailed,
		Error:         errMsg,
		LatencyMs:     now.Sub(env.CreatedAt).Milliseconds(),
		RespondedAt:   now,
	}
}
