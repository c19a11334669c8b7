package domain

import "time"

// TicketMessage is one entry in a ticket's reply thread. Messages live in
// their own table keyed by ticket id so concurrent replies never clobber
// each other.
type TicketMessage struct {
	ID          string
	TicketID    string
	AuthorID    string
	AuthorRole  Role
	Body        string
	Attachments []string
	CreatedAt   time.Time
}

// DeletableBy applies the thread deletion rules: a user may remove only a
// message they authored; an admin may remove any admin-authored message.
func (m *TicketMessage) DeletableBy(requesterID string, requesterRole Role) bool {
	if m == nil {
		return false
	}
	if requesterRole == RoleAdmin {
		return m.AuthorRole == RoleAdmin
	}
	return m.AuthorID == requesterID
}
