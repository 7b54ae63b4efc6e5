package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/support-hub/helpdesk-core/internal/domain"
)

// Channel names form the bus contract with the presentation gateway.
const (
	ChannelCreated      = "tickets.created"
	ChannelUpdated      = "tickets.updated"
	ChannelTransitioned = "tickets.transitioned"
	ChannelDeleted      = "tickets.deleted"
	ChannelReminders    = "tickets.reminders"
)

// Channels lists every channel the core publishes on.
func Channels() []string {
	return []string{ChannelCreated, ChannelUpdated, ChannelTransitioned, ChannelDeleted, ChannelReminders}
}

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventTicketDeleted      EventType = "ticket_deleted"
	EventTicketReminder     EventType = "ticket_reminder"
)

// Event is the wire unit published on a named channel. Delivery is
// at-most-once; consumers treat the payload as a hint and re-read the
// repository before acting.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	TicketID  string          `json:"ticket_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh id and the payload marshaled in place.
func NewEvent(eventType EventType, ticketID string, payload any) Event {
	evt := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			evt.Payload = raw
		}
	}
	return evt
}

// DecodePayload unmarshals the payload into out. A missing payload is fine.
func (e Event) DecodePayload(out any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, out)
}

// PayloadMap returns the payload as a generic map for audit storage.
func (e Event) PayloadMap() map[string]any {
	if len(e.Payload) == 0 {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(e.Payload, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// UpdatedPayload accompanies tickets.updated.
type UpdatedPayload struct {
	Text string `json:"text"`
}

// TransitionedPayload accompanies tickets.transitioned.
type TransitionedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Assignee  *string             `json:"assignee,omitempty"`
	Actor     string              `json:"actor,omitempty"`
}

// DeletedPayload accompanies tickets.deleted. The ticket record is gone by
// the time consumers see this, so the fields they need travel in the event.
type DeletedPayload struct {
	SubmitterID string              `json:"submitter_id"`
	Status      domain.TicketStatus `json:"status"`
}

// ReminderPayload accompanies tickets.reminders.
type ReminderPayload struct {
	Assignee *string `json:"assignee,omitempty"`
	SetAt    string  `json:"set_at,omitempty"`
}
