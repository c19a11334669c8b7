package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler exposes the end-user ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	store   *storage.LocalStore
}

// NewTicketsHandler returns a new handler instance.
func NewTicketsHandler(tickets *service.TicketService, store *storage.LocalStore) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, store: store}
}

// Create handles POST /api/tickets. The body is multipart form data so the
// ticket fields and attachments arrive together.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	attachments, err := h.saveAttachments(c)
	if err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Subject:      req.Subject,
		Description:  req.Description,
		Type:         domain.TicketType(strings.ToUpper(req.Type)),
		AssignedUnit: domain.Unit(req.AssignedUnit),
		Priority:     domain.TicketPriority(strings.ToUpper(req.Priority)),
		Attachments:  attachments,
	}
	if req.AssigneeID != "" {
		input.AssigneeID = &req.AssigneeID
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// List handles GET /api/tickets. Users see tickets they own or are assigned.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(tickets))
}

// Summary handles GET /api/tickets/summary.
func (h *TicketsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.tickets.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.TicketSummaryResponse{
		Open:       summary.Open,
		InProgress: summary.InProgress,
		Resolved:   summary.Resolved,
	})
}

// Get handles GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	ticket, messages, err := h.tickets.GetTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketDetailResponse(ticket, messages))
}

// Update handles PUT /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketUpdateInput{
		Subject:     req.Subject,
		Description: req.Description,
	}
	if req.AssignedUnit != nil {
		unit := domain.Unit(*req.AssignedUnit)
		input.AssignedUnit = &unit
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(strings.ToUpper(*req.Priority))
		input.Priority = &priority
	}
	if req.Status != nil {
		status := domain.TicketStatus(strings.ToUpper(*req.Status))
		input.Status = &status
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), principal.User, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Close handles PATCH /api/tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	ticket, err := h.tickets.CloseTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Reopen handles PATCH /api/tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	ticket, err := h.tickets.ReopenTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Reply handles POST /api/tickets/:id/reply with multipart attachments.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	attachments, err := h.saveAttachments(c)
	if err != nil {
		return err
	}

	message, ticket, err := h.tickets.AddReply(c.UserContext(), principal.User, c.Params("id"), req.Body, attachments)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": dto.NewTicketMessageResponse(message),
		"ticket":  dto.NewTicketResponse(ticket),
	})
}

// DeleteMessage handles DELETE /api/tickets/:ticketID/messages/:messageID.
func (h *TicketsHandler) DeleteMessage(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.tickets.DeleteMessage(c.UserContext(), principal.User, c.Params("ticketID"), c.Params("messageID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TicketsHandler) saveAttachments(c *fiber.Ctx) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}
	files := form.File["attachments"]
	if len(files) == 0 {
		return nil, nil
	}
	return h.store.SaveAll(c, files)
}

func parseTicketFilter(c *fiber.Ctx) (service.TicketListFilter, error) {
	var filter service.TicketListFilter
	if raw := c.Query("unit"); raw != "" {
		unit := domain.Unit(raw)
		if !domain.ValidUnit(unit) {
			return filter, apperrors.NewValidationError("unknown unit", map[string]any{"unit": raw})
		}
		filter.Unit = &unit
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(strings.ToUpper(raw))
		filter.Status = &status
	}
	if raw := c.Query("type"); raw != "" {
		ticketType := domain.TicketType(strings.ToUpper(raw))
		filter.Type = &ticketType
	}
	return filter, nil
}
