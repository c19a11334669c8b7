package domain

import "time"

// ActivityChangeType captures what changed in an activity log entry.
type ActivityChangeType string

const (
	ActivityStatusChange   ActivityChangeType = "STATUS_CHANGE"
	ActivityAssigneeChange ActivityChangeType = "ASSIGNEE_CHANGE"
)

// ActivityLog is an immutable audit trail entry for a ticket mutation.
type ActivityLog struct {
	ID         string
	TicketID   string
	ActorID    *string
	ActorRole  Role
	ChangeType ActivityChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
