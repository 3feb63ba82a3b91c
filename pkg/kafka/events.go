package kafka

import (
	"time"
)

// UsageEvent is the record emitted for every charge outcome. Downstream
// billing analytics consume these from the usage topic.
type UsageEvent struct {
	EventID       string    `json:"event_id"`
	ReceiptID     string    `json:"receipt_id"`
	Email         string    `json:"email"`
	Kind          string    `json:"kind"`
	Cost          int64     `json:"cost"`
	Outcome       string    `json:"outcome"` // charged | succeeded | failed | refunded
	Attempts      int       `json:"attempts,omitempty"`
	Rotations     int       `json:"rotations,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	SchemaVersion string    `json:"schema_version"`
}

// Usage event outcomes
const (
	OutcomeCharged   = "charged"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRefunded  = "refunded"
)
