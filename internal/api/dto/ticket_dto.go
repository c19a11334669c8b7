package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Attachments arrive as multipart files, not in
// the JSON body.
type CreateTicketRequest struct {
	Subject      string `json:"subject" form:"subject"`
	Description  string `json:"description" form:"description"`
	Type         string `json:"type" form:"type"`
	AssignedUnit string `json:"assigned_unit" form:"assigned_unit"`
	AssigneeID   string `json:"assignee_id" form:"assignee_id"`
	Priority     string `json:"priority" form:"priority"`
}

// UpdateTicketRequest payload; nil fields are left untouched.
type UpdateTicketRequest struct {
	Subject      *string `json:"subject"`
	Description  *string `json:"description"`
	AssignedUnit *string `json:"assigned_unit"`
	Priority     *string `json:"priority"`
	Status       *string `json:"status"`
}

// ReassignTicketRequest payload.
type ReassignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// CreateMessageRequest payload for thread replies.
type CreateMessageRequest struct {
	Body string `json:"body" form:"body"`
}

// TicketResponse is the standard ticket representation.
type TicketResponse struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	Subject            string    `json:"subject"`
	Description        string    `json:"description"`
	Type               string    `json:"type"`
	Status             string    `json:"status"`
	AssignedUnit       string    `json:"assigned_unit"`
	AssigneeID         *string   `json:"assignee_id"`
	PreviousAssigneeID *string   `json:"previous_assignee_id,omitempty"`
	PreviousUnit       *string   `json:"previous_unit,omitempty"`
	Priority           string    `json:"priority"`
	Attachments        []string  `json:"attachments"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TicketDetailResponse adds the message thread.
type TicketDetailResponse struct {
	TicketResponse
	Messages []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents one thread entry.
type TicketMessageResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	AuthorID    string    `json:"author_id"`
	AuthorRole  string    `json:"author_role"`
	Body        string    `json:"body"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketSummaryResponse is the per-user dashboard counters.
type TicketSummaryResponse struct {
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

// ActivityLogResponse is one audit trail entry.
type ActivityLogResponse struct {
	ID         string         `json:"id"`
	TicketID   string         `json:"ticket_id"`
	ActorID    *string        `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	ChangeType string         `json:"change_type"`
	OldValue   map[string]any `json:"old_value"`
	NewValue   map[string]any `json:"new_value"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	attachments := t.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	resp := TicketResponse{
		ID:           t.ID,
		OwnerID:      t.OwnerID,
		Subject:      t.Subject,
		Description:  t.Description,
		Type:         string(t.Type),
		Status:       string(t.Status),
		AssignedUnit: string(t.AssignedUnit),
		AssigneeID:   t.AssigneeID,
		Priority:     string(t.Priority),
		Attachments:  attachments,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	resp.PreviousAssigneeID = t.PreviousAssigneeID
	if t.PreviousUnit != nil {
		unit := string(*t.PreviousUnit)
		resp.PreviousUnit = &unit
	}
	return resp
}

// NewTicketListResponse maps a slice of tickets.
func NewTicketListResponse(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, NewTicketResponse(&tickets[i]))
	}
	return result
}

// NewTicketDetailResponse maps a ticket plus its thread.
func NewTicketDetailResponse(t *domain.Ticket, messages []domain.TicketMessage) TicketDetailResponse {
	detail := TicketDetailResponse{
		TicketResponse: NewTicketResponse(t),
		Messages:       make([]TicketMessageResponse, 0, len(messages)),
	}
	for i := range messages {
		detail.Messages = append(detail.Messages, NewTicketMessageResponse(&messages[i]))
	}
	return detail
}

// NewTicketMessageResponse maps a domain message.
func NewTicketMessageResponse(m *domain.TicketMessage) TicketMessageResponse {
	attachments := m.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return TicketMessageResponse{
		ID:          m.ID,
		TicketID:    m.TicketID,
		AuthorID:    m.AuthorID,
		AuthorRole:  string(m.AuthorRole),
		Body:        m.Body,
		Attachments: attachments,
		CreatedAt:   m.CreatedAt,
	}
}

// NewActivityLogResponses maps audit entries.
func NewActivityLogResponses(logs []domain.ActivityLog) []ActivityLogResponse {
	result := make([]ActivityLogResponse, 0, len(logs))
	for i := range logs {
		entry := &logs[i]
		result = append(result, ActivityLogResponse{
			ID:         entry.ID,
			TicketID:   entry.TicketID,
			ActorID:    entry.ActorID,
			ActorRole:  string(entry.ActorRole),
			ChangeType: string(entry.ChangeType),
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return result
}
