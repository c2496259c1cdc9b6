package outbox

import (
	"encoding/json"
	"time"
)

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     string          `json:"source,omitempty"`
	Data       json.RawMessage `json:"data"`
}

const (
	// SourceAPI marks events produced by admin HTTP mutations.
	SourceAPI = "api"
	// SourceScheduler marks events produced by the validity scheduler.
	SourceScheduler = "scheduler"
)
