package domain

import "time"

// TicketSchemaVersion is stamped into every stored record. Readers must accept
// records with a lower version and default the missing fields.
const TicketSchemaVersion = 2

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusUnreacted  TicketStatus = "unreacted"
	TicketStatusWaiting    TicketStatus = "waiting"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
)

// Statuses lists every valid status in display order.
func Statuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusUnreacted,
		TicketStatusWaiting,
		TicketStatusInProgress,
		TicketStatusCompleted,
	}
}

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusUnreacted, TicketStatusWaiting, TicketStatusInProgress, TicketStatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether a ticket in this status is out of the active
// workflow. Terminal tickets never extend an aggregation window.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusCompleted
}

// AttachmentRef points at an externally stored attachment. The core treats it
// as opaque.
type AttachmentRef struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
}

// Ticket is the aggregate tracked through the status lifecycle.
//
// Assignee is set iff the ticket is InProgress or was completed while
// assigned. RoutingLabel is owned by the router worker; nobody else writes it.
type Ticket struct {
	ID              string          `json:"id"`
	SchemaVersion   int             `json:"schema_version"`
	SubmitterID     string          `json:"submitter_id"`
	SubmitterHandle string          `json:"submitter_handle,omitempty"`
	Text            string          `json:"text"`
	Status          TicketStatus    `json:"status"`
	Assignee        *string         `json:"assignee,omitempty"`
	MessageCount    int             `json:"message_count"`
	Aggregated      bool            `json:"aggregated"`
	RoutingLabel    string          `json:"routing_label,omitempty"`
	Reply           *TicketReply    `json:"reply,omitempty"`
	Attachments     []AttachmentRef `json:"attachments,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TicketReply records the operator answer forwarded to the submitter.
type TicketReply struct {
	Text   string    `json:"text"`
	Author string    `json:"author"`
	SentAt time.Time `json:"sent_at"`
}

// AssigneeHandle returns the assignee or "" when unassigned.
func (t *Ticket) AssigneeHandle() string {
	if t.Assignee == nil {
		return ""
	}
	return *t.Assignee
}

// TicketUpdate carries a partial field update. Nil fields are left untouched.
type TicketUpdate struct {
	Text           *string
	Status         *TicketStatus
	Assignee       *string
	ClearAssign    bool
	MessageCount   *int
	Aggregated     *bool
	RoutingLabel   *string
	Reply          *TicketReply
	AddAttachments []AttachmentRef
	UpdatedAt      *time.Time
}

// Apply copies the set fields onto the ticket, keeping UpdatedAt monotonic.
func (u TicketUpdate) Apply(t *Ticket) {
	if u.Text != nil {
		t.Text = *u.Text
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.ClearAssign {
		t.Assignee = nil
	} else if u.Assignee != nil {
		t.Assignee = u.Assignee
	}
	if u.MessageCount != nil {
		t.MessageCount = *u.MessageCount
	}
	if u.Aggregated != nil {
		t.Aggregated = *u.Aggregated
	}
	if u.RoutingLabel != nil {
		t.RoutingLabel = *u.RoutingLabel
	}
	if u.Reply != nil {
		t.Reply = u.Reply
	}
	if len(u.AddAttachments) > 0 {
		t.Attachments = append(t.Attachments, u.AddAttachments...)
	}
	if u.UpdatedAt != nil && u.UpdatedAt.After(t.UpdatedAt) {
		t.UpdatedAt = *u.UpdatedAt
	}
}
