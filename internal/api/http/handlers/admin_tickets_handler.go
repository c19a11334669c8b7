package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AdminTicketsHandler exposes administration and reporting endpoints.
type AdminTicketsHandler struct {
	tickets *service.TicketService
	reports *service.ReportService
}

// NewAdminTicketsHandler returns a new handler instance.
func NewAdminTicketsHandler(tickets *service.TicketService, reports *service.ReportService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: tickets, reports: reports}
}

// List handles GET /api/admin/tickets with optional unit/status/type filters.
func (h *AdminTicketsHandler) List(c *fiber.Ctx) error {
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

// Resolve handles PATCH /api/admin/tickets/:id/resolve.
func (h *AdminTicketsHandler) Resolve(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	ticket, err := h.tickets.ResolveTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Reassign handles PATCH /api/admin/tickets/:id/reassign.
func (h *AdminTicketsHandler) Reassign(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req dto.ReassignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}

	ticket, err := h.tickets.ReassignTicket(c.UserContext(), principal.User, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Delete handles DELETE /api/admin/tickets/:id.
func (h *AdminTicketsHandler) Delete(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.tickets.DeleteTicket(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StatusDistribution handles GET /api/admin/tickets/status-distribution.
func (h *AdminTicketsHandler) StatusDistribution(c *fiber.Ctx) error {
	buckets, err := h.reports.StatusDistribution(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(buckets)
}

// TypeDistribution handles GET /api/admin/tickets/type-distribution.
func (h *AdminTicketsHandler) TypeDistribution(c *fiber.Ctx) error {
	buckets, err := h.reports.TypeDistribution(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(buckets)
}

// PriorityDistribution handles GET /api/admin/tickets/priority-distribution.
func (h *AdminTicketsHandler) PriorityDistribution(c *fiber.Ctx) error {
	buckets, err := h.reports.PriorityDistribution(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(buckets)
}

// TicketsByUnit handles GET /api/admin/tickets/tickets-by-unit.
func (h *AdminTicketsHandler) TicketsByUnit(c *fiber.Ctx) error {
	buckets, err := h.reports.UnitDistribution(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(buckets)
}

// AvgResolutionTime handles GET /api/admin/tickets/avg-resolution-time.
func (h *AdminTicketsHandler) AvgResolutionTime(c *fiber.Ctx) error {
	result, err := h.reports.AvgResolutionTime(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// AssigneePerformance handles GET /api/admin/tickets/assignee-performance.
func (h *AdminTicketsHandler) AssigneePerformance(c *fiber.Ctx) error {
	rows, err := h.reports.AssigneePerformance(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// Trends handles GET /api/admin/tickets/trends.
func (h *AdminTicketsHandler) Trends(c *fiber.Ctx) error {
	days, _ := strconv.Atoi(c.Query("days", "7"))
	points, err := h.reports.Trends(c.UserContext(), days)
	if err != nil {
		return err
	}
	return c.JSON(points)
}

// Recent handles GET /api/admin/tickets/recent.
func (h *AdminTicketsHandler) Recent(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	rows, err := h.reports.RecentTickets(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// ActivityLogs handles GET /api/admin/tickets/activity-logs.
func (h *AdminTicketsHandler) ActivityLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	entries, err := h.tickets.ActivityLogs(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewActivityLogResponses(entries))
}

// DownloadReport handles GET /api/admin/tickets/report/download.
func (h *AdminTicketsHandler) DownloadReport(c *fiber.Ctx) error {
	data, err := h.reports.Snapshot(c.UserContext())
	if err != nil {
		return err
	}

	start := time.Now()
	payload, err := report.RenderPDF(data)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	observability.ReportRenderDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())

	filename := "helpdesk-report-" + data.GeneratedAt.Format("2006-01-02") + ".pdf"
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(payload)
}

// ReportChart handles GET /api/admin/tickets/report/chart. The kind query
// selects the artifact: status (default), unit or trends.
func (h *AdminTicketsHandler) ReportChart(c *fiber.Ctx) error {
	data, err := h.reports.Snapshot(c.UserContext())
	if err != nil {
		return err
	}

	start := time.Now()
	var payload []byte
	var renderErr error
	kind := c.Query("kind", "status")
	switch kind {
	case "status":
		payload, renderErr = report.StatusChart(data.StatusDistribution)
	case "unit":
		payload, renderErr = report.UnitChart(data.UnitDistribution)
	case "trends":
		payload, renderErr = report.TrendChart(data.Trends)
	default:
		return apperrors.NewValidationError("unknown chart kind", map[string]any{"kind": kind})
	}
	if renderErr != nil {
		return apperrors.NewInternalError(renderErr)
	}
	observability.ReportRenderDuration.WithLabelValues("chart").Observe(time.Since(start).Seconds())

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(payload)
}
