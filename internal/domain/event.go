package domain

import "time"

// Event is one operational record in the append-only event log.
type Event struct {
	ID         int64
	OccurredAt time.Time
	Operation  string // e.g., "balance", "market_order", "failsafe"
	Message    string
	Details    string // Optional free-form payload (JSON or key=value)
}
