package domain

import "time"

// NotificationType enumerates ticket events users are told about.
type NotificationType string

const (
	NotificationNewTicket   NotificationType = "NEW_TICKET"
	NotificationAdminOpened NotificationType = "ADMIN_OPENED"
	NotificationAdminReply  NotificationType = "ADMIN_REPLY"
	NotificationReassigned  NotificationType = "REASSIGNED"
)

// Notification is a per-user record of a ticket-related event.
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Type      NotificationType
	TicketID  *string
	IsRead    bool
	CreatedAt time.Time
}
