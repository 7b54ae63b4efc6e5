package dto

import (
	"time"

	"github.com/support-hub/helpdesk-core/internal/domain"
)

// IngestMessageRequest payload for submitting one inbound message.
type IngestMessageRequest struct {
	SubmitterID     string              `json:"submitter_id"`
	SubmitterHandle string              `json:"submitter_handle"`
	Content         string              `json:"content"`
	Attachments     []AttachmentRequest `json:"attachments"`
}

// AttachmentRequest describes attachment input.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TransitionRequest payload for moving a ticket along the status graph.
type TransitionRequest struct {
	Status   string  `json:"status"`
	Assignee *string `json:"assignee,omitempty"`
}

// ReplyRequest payload for recording the operator answer.
type ReplyRequest struct {
	Text string `json:"text"`
}

// ReminderRequest payload. Zero minutes picks the configured default.
type ReminderRequest struct {
	Minutes int `json:"minutes"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID              string               `json:"id"`
	SubmitterID     string               `json:"submitter_id"`
	SubmitterHandle string               `json:"submitter_handle,omitempty"`
	Text            string               `json:"text"`
	Status          domain.TicketStatus  `json:"status"`
	Assignee        *string              `json:"assignee,omitempty"`
	MessageCount    int                  `json:"message_count"`
	Aggregated      bool                 `json:"aggregated"`
	RoutingLabel    string               `json:"routing_label,omitempty"`
	Reply           *ReplyResponse       `json:"reply,omitempty"`
	Attachments     []AttachmentResponse `json:"attachments,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// ReplyResponse is the recorded operator answer.
type ReplyResponse struct {
	Text   string    `json:"text"`
	Author string    `json:"author"`
	SentAt time.Time `json:"sent_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
}

// ReminderResponse confirms a scheduled reminder.
type ReminderResponse struct {
	TicketID string    `json:"ticket_id"`
	SetAt    time.Time `json:"set_at"`
	DueAt    time.Time `json:"due_at"`
}

// AuditEntryResponse is one row of a ticket's event history.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	Channel   string         `json:"channel"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
