package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusValidity(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusUnreacted, TicketStatusWaiting, TicketStatusInProgress, TicketStatusCompleted} {
		assert.True(t, status.IsValid(), status)
	}
	assert.False(t, TicketStatus("open").IsValid())

	assert.True(t, TicketStatusCompleted.IsTerminal())
	assert.False(t, TicketStatusInProgress.IsTerminal())
}

func TestTicketUpdateApply(t *testing.T) {
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	ticket := Ticket{
		ID:        "t1",
		Text:      "before",
		Status:    TicketStatusUnreacted,
		CreatedAt: created,
		UpdatedAt: created,
	}

	text := "after"
	status := TicketStatusInProgress
	assignee := "alice"
	count := 2
	later := created.Add(time.Hour)

	TicketUpdate{
		Text:           &text,
		Status:         &status,
		Assignee:       &assignee,
		MessageCount:   &count,
		AddAttachments: []AttachmentRef{{StorageKey: "s3://a"}},
		UpdatedAt:      &later,
	}.Apply(&ticket)

	assert.Equal(t, "after", ticket.Text)
	assert.Equal(t, TicketStatusInProgress, ticket.Status)
	assert.Equal(t, "alice", ticket.AssigneeHandle())
	assert.Equal(t, 2, ticket.MessageCount)
	assert.Len(t, ticket.Attachments, 1)
	assert.Equal(t, later, ticket.UpdatedAt)
}

func TestTicketUpdateKeepsUpdatedAtMonotonic(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	ticket := Ticket{UpdatedAt: now}

	earlier := now.Add(-time.Hour)
	TicketUpdate{UpdatedAt: &earlier}.Apply(&ticket)
	assert.Equal(t, now, ticket.UpdatedAt)
}

func TestTicketUpdateClearAssign(t *testing.T) {
	alice := "alice"
	ticket := Ticket{Assignee: &alice}

	TicketUpdate{ClearAssign: true}.Apply(&ticket)
	assert.Nil(t, ticket.Assignee)
	assert.Empty(t, ticket.AssigneeHandle())
}

func TestAggregationWindowExpired(t *testing.T) {
	now := time.Now()
	window := AggregationWindow{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, window.Expired(now))
	assert.True(t, window.Expired(now.Add(2*time.Minute)))
}
