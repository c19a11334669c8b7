package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusReopened   TicketStatus = "REOPENED"
)

// TicketType categorizes the nature of a request.
type TicketType string

const (
	TicketTypeIncident    TicketType = "INCIDENT"
	TicketTypeBug         TicketType = "BUG"
	TicketTypeMaintenance TicketType = "MAINTENANCE"
	TicketTypeRequest     TicketType = "REQUEST"
	TicketTypeService     TicketType = "SERVICE"
)

// ValidTicketType reports whether the value is a known type.
func ValidTicketType(t TicketType) bool {
	switch t {
	case TicketTypeIncident, TicketTypeBug, TicketTypeMaintenance, TicketTypeRequest, TicketTypeService:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Priorities lists priorities in ascending severity order. Reports zero-fill
// buckets in this order.
func Priorities() []TicketPriority {
	return []TicketPriority{
		TicketPriorityLow,
		TicketPriorityMedium,
		TicketPriorityHigh,
		TicketPriorityCritical,
	}
}

// Ticket is the aggregate for helpdesk requests.
type Ticket struct {
	ID                 string
	OwnerID            string
	Subject            string
	Description        string
	Type               TicketType
	Status             TicketStatus
	AssignedUnit       Unit
	AssigneeID         *string
	PreviousAssigneeID *string
	PreviousUnit       *Unit
	Priority           TicketPriority
	Attachments        []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// transitions is the single source of truth for permitted status changes.
// Close is guarded to OPEN and reopen to CLOSED; RESOLVED is reachable from
// every non-closed state because resolving is an unconditional admin action.
var transitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusResolved},
	TicketStatusClosed:     {TicketStatusReopened},
	TicketStatusReopened:   {TicketStatusInProgress, TicketStatusResolved},
}

// CanTransition reports whether a status change is permitted.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range transitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
