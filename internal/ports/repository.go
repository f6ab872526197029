package ports

import (
	"context"

	"github.com/gr-satt/bordem/internal/domain"
)

// EventRepository defines the interface for the append-only operational event log.
type EventRepository interface {
	// Append stores a new event and returns its assigned ID.
	Append(ctx context.Context, ev *domain.Event) (int64, error)
	// FindRecent retrieves the most recent events, newest first, up to a limit.
	FindRecent(ctx context.Context, limit int) ([]*domain.Event, error)
}

// Mailer defines the interface for outbound alert email.
type Mailer interface {
	// Send delivers an alert with the given subject and body.
	Send(ctx context.Context, subject, body string) error
}
