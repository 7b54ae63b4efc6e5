package domain

import "time"

// TicketEvent is one bus event persisted to the durable audit trail.
type TicketEvent struct {
	ID        string
	TicketID  string
	Channel   string
	EventType string
	Payload   map[string]any
	CreatedAt time.Time
}
