package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	TicketID  *string   `json:"ticket_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationListResponse maps a user's notifications.
func NewNotificationListResponse(items []domain.Notification) []NotificationResponse {
	result := make([]NotificationResponse, 0, len(items))
	for i := range items {
		n := &items[i]
		result = append(result, NotificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Type:      string(n.Type),
			TicketID:  n.TicketID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return result
}
