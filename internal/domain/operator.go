package domain

import "time"

// Operator is a helpdesk staff account allowed to triage tickets.
type Operator struct {
	ID           string
	Handle       string
	DisplayName  string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
