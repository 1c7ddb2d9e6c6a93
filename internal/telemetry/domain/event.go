package domain

import (
	"encoding/json"
	"time"
)

// Event is a telemetry event. Metadata holds event-specific JSON; UserID is
// empty for anonymous requests. The JSON tags are the wire shape on the Kafka
// topic and what the worker parses when pushing to Loki.
type Event struct {
	UserID    string          `json:"userId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
