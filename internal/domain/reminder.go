package domain

import "time"

// Reminder is a pending follow-up nudge for an in-progress ticket. At most
// one reminder exists per ticket; setting a new one replaces it.
type Reminder struct {
	TicketID string    `json:"ticket_id"`
	SetAt    time.Time `json:"set_at"`
	DueAt    time.Time `json:"due_at"`
}
