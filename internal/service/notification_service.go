package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// NotificationService records per-user notifications for ticket events and
// serves the notification inbox. Event-driven writes are fire-and-forget:
// a failed insert is logged and dropped, never failing the parent operation.
type NotificationService struct {
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to ticket lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketReplyAdded, n.handleReplyAdded)
	n.dispatcher.Subscribe(events.EventTicketReassigned, n.handleReassigned)
}

// List returns the user's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	result, err := n.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// MarkRead flips one notification to read, enforcing ownership.
func (n *NotificationService) MarkRead(ctx context.Context, requesterID, notificationID string) error {
	notification, err := n.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	if notification.UserID != requesterID {
		return apperrors.NewForbidden("notification belongs to another user")
	}
	if err := n.notifications.MarkRead(ctx, notificationID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// MarkAllRead flips every unread notification of the user.
func (n *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := n.notifications.MarkAllRead(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	if payload.AssigneeID == nil {
		return nil
	}
	n.record(ctx, *payload.AssigneeID, domain.NotificationNewTicket, event.TicketID,
		fmt.Sprintf("New ticket assigned to you: %s", payload.Subject))
	return nil
}

func (n *NotificationService) handleReplyAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReplyAddedPayload)
	if !ok {
		return nil
	}
	if payload.AuthorRole != domain.RoleAdmin {
		return nil
	}
	if payload.OpenedTicket {
		n.record(ctx, payload.OwnerID, domain.NotificationAdminOpened, event.TicketID,
			fmt.Sprintf("An admin started working on your ticket: %s", payload.TicketSubject))
	}
	n.record(ctx, payload.OwnerID, domain.NotificationAdminReply, event.TicketID,
		fmt.Sprintf("An admin replied to your ticket: %s", payload.TicketSubject))
	return nil
}

func (n *NotificationService) handleReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReassignedPayload)
	if !ok {
		return nil
	}
	n.record(ctx, payload.NewAssigneeID, domain.NotificationReassigned, event.TicketID,
		fmt.Sprintf("Ticket reassigned to you: %s", payload.Subject))
	return nil
}

func (n *NotificationService) record(ctx context.Context, userID string, notificationType domain.NotificationType, ticketID, message string) {
	notification := &domain.Notification{
		UserID:   userID,
		Message:  message,
		Type:     notificationType,
		TicketID: &ticketID,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		observability.NotificationFailuresTotal.Inc()
		n.logger.Warn("notification dropped",
			zap.String("user_id", userID),
			zap.String("type", string(notificationType)),
			zap.Error(err))
		return
	}
	observability.NotificationsEmittedTotal.WithLabelValues(string(notificationType)).Inc()
}
