package domain

import "time"

// AggregationWindow is the open debounce interval for one submitter. At most
// one window exists per submitter; the referenced ticket must be live and
// non-terminal or the window is discarded.
type AggregationWindow struct {
	SubmitterID string    `json:"submitter_id"`
	TicketID    string    `json:"ticket_id"`
	OpenedAt    time.Time `json:"opened_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the window has passed its expiry at the given instant.
func (w *AggregationWindow) Expired(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}
