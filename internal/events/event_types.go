package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReassigned    EventType = "ticket_reassigned"
	EventTicketReplyAdded    EventType = "ticket_reply_added"
)

// Actor encapsulates who performed the action.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerID      string                `json:"owner_id"`
	AssignedUnit domain.Unit           `json:"assigned_unit"`
	AssigneeID   *string               `json:"assignee_id,omitempty"`
	Subject      string                `json:"subject"`
	Priority     domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OwnerID   string              `json:"owner_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	NewAssigneeID      string       `json:"new_assignee_id"`
	PreviousAssigneeID *string      `json:"previous_assignee_id,omitempty"`
	PreviousUnit       *domain.Unit `json:"previous_unit,omitempty"`
	Subject            string       `json:"subject"`
}

// TicketReplyAddedPayload payload.
type TicketReplyAddedPayload struct {
	MessageID     string      `json:"message_id"`
	OwnerID       string      `json:"owner_id"`
	AuthorRole    domain.Role `json:"author_role"`
	BodyPreview   string      `json:"body_preview"`
	OpenedTicket  bool        `json:"opened_ticket"`
	TicketSubject string      `json:"ticket_subject"`
}
