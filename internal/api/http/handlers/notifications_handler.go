package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// NotificationsHandler exposes the per-user notification inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler returns a new handler instance.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	items, err := h.notifications.List(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationListResponse(items))
}

// MarkRead handles PATCH /api/notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.notifications.MarkRead(c.UserContext(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "notification marked read"})
}

// MarkAllRead handles PATCH /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.notifications.MarkAllRead(c.UserContext(), principal.User.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "notifications marked read"})
}
