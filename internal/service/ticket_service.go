package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Invalidator drops cached report aggregates after a ticket mutation.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// TicketService coordinates the ticket lifecycle and its message thread.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	users      repository.UserRepository
	activity   repository.ActivityLogRepository
	dispatcher events.Dispatcher
	cache      Invalidator
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	MessageRepo  repository.TicketMessageRepository
	UserRepo     repository.UserRepository
	ActivityRepo repository.ActivityLogRepository
	Dispatcher   events.Dispatcher
	ReportCache  Invalidator
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject      string
	Description  string
	Type         domain.TicketType
	AssignedUnit domain.Unit
	AssigneeID   *string
	Priority     domain.TicketPriority
	Attachments  []string
}

// TicketUpdateInput describes the editable ticket fields. Nil means
// leave unchanged.
type TicketUpdateInput struct {
	Subject      *string
	Description  *string
	AssignedUnit *domain.Unit
	Priority     *domain.TicketPriority
	Status       *domain.TicketStatus
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Unit   *domain.Unit
	Status *domain.TicketStatus
	Type   *domain.TicketType
}

// TicketSummary reports headline counts for the dashboard.
type TicketSummary struct {
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		users:      deps.UserRepo,
		activity:   deps.ActivityRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.ReportCache,
	}
}

// CreateTicket creates a ticket for a user with status OPEN.
func (s *TicketService) CreateTicket(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	if ownerID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !domain.ValidUnit(input.AssignedUnit) {
		return nil, apperrors.NewValidationError("assigned unit required", map[string]any{"assigned_unit": input.AssignedUnit})
	}
	if !domain.ValidTicketType(input.Type) {
		return nil, apperrors.NewValidationError("invalid ticket type", map[string]any{"type": input.Type})
	}
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}

	ticket := &domain.Ticket{
		OwnerID:      ownerID,
		Subject:      subject,
		Description:  description,
		Type:         input.Type,
		Status:       domain.TicketStatusOpen,
		AssignedUnit: input.AssignedUnit,
		AssigneeID:   input.AssigneeID,
		Priority:     input.Priority,
		Attachments:  input.Attachments,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: ownerID, Role: domain.RoleUser},
		Payload: events.TicketCreatedPayload{
			OwnerID:      ticket.OwnerID,
			AssignedUnit: ticket.AssignedUnit,
			AssigneeID:   ticket.AssigneeID,
			Subject:      ticket.Subject,
			Priority:     ticket.Priority,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets visible to the caller: admins see everything,
// users see tickets they own or are assigned to.
func (s *TicketService) ListTickets(ctx context.Context, requester *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Unit:   filter.Unit,
		Status: filter.Status,
		Type:   filter.Type,
	}
	if !requester.IsAdmin() {
		repoFilter.OwnerOrAssigneeID = &requester.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches one ticket with its thread, enforcing visibility.
func (s *TicketService) GetTicket(ctx context.Context, requester *domain.User, ticketID string) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !s.canView(requester, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, msgs, nil
}

// UpdateTicket edits ticket fields. Status changes are validated against the
// transition table; everything else is a plain write.
func (s *TicketService) UpdateTicket(ctx context.Context, requester *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(requester, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, apperrors.NewValidationError("subject cannot be empty", nil)
		}
		ticket.Subject = subject
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.AssignedUnit != nil {
		if !domain.ValidUnit(*input.AssignedUnit) {
			return nil, apperrors.NewValidationError("invalid unit", map[string]any{"assigned_unit": *input.AssignedUnit})
		}
		ticket.AssignedUnit = *input.AssignedUnit
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}

	oldStatus := ticket.Status
	if input.Status != nil && *input.Status != oldStatus {
		if !domain.CanTransition(oldStatus, *input.Status) {
			return nil, apperrors.NewConflict("invalid status transition", map[string]any{
				"from": oldStatus,
				"to":   *input.Status,
			})
		}
		ticket.Status = *input.Status
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	if ticket.Status != oldStatus {
		s.recordStatusChange(ctx, requester, ticket, oldStatus, "updated")
		s.publishStatusChange(ctx, requester, ticket, oldStatus, "updated")
	}
	return ticket, nil
}

// CloseTicket transitions OPEN tickets to CLOSED; anything else conflicts.
func (s *TicketService) CloseTicket(ctx context.Context, requester *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.guardedTransition(ctx, requester, ticketID, domain.TicketStatusClosed, "user_closed")
}

// ReopenTicket transitions CLOSED tickets to REOPENED.
func (s *TicketService) ReopenTicket(ctx context.Context, requester *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.guardedTransition(ctx, requester, ticketID, domain.TicketStatusReopened, "user_reopened")
}

func (s *TicketService) guardedTransition(ctx context.Context, requester *domain.User, ticketID string, target domain.TicketStatus, comment string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(requester, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	oldStatus := ticket.Status
	if !domain.CanTransition(oldStatus, target) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": oldStatus,
			"to":   target,
		})
	}
	ticket.Status = target
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	s.recordStatusChange(ctx, requester, ticket, oldStatus, comment)
	s.publishStatusChange(ctx, requester, ticket, oldStatus, comment)
	return ticket, nil
}

// ResolveTicket sets status to RESOLVED. It is an unconditional admin action
// and idempotent: resolving an already resolved ticket is a no-op success.
func (s *TicketService) ResolveTicket(ctx context.Context, requester *domain.User, ticketID string) (*domain.Ticket, error) {
	if !requester.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return ticket, nil
	}
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusResolved
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	s.recordStatusChange(ctx, requester, ticket, oldStatus, "admin_resolved")
	s.publishStatusChange(ctx, requester, ticket, oldStatus, "admin_resolved")
	return ticket, nil
}

// ReassignTicket moves the ticket to a new assignee, keeping the prior
// assignee and unit for audit display.
func (s *TicketService) ReassignTicket(ctx context.Context, requester *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !requester.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	previousAssignee := ticket.AssigneeID
	previousUnit := ticket.AssignedUnit
	ticket.PreviousAssigneeID = previousAssignee
	ticket.PreviousUnit = &previousUnit
	ticket.AssigneeID = &assignee.ID
	if assignee.Unit != "" {
		ticket.AssignedUnit = assignee.Unit
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	s.recordActivity(ctx, requester, ticket.ID, domain.ActivityAssigneeChange,
		map[string]any{"assignee": previousAssignee, "unit": previousUnit},
		map[string]any{"assignee": assignee.ID, "unit": ticket.AssignedUnit})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: requester.ID, Role: requester.Role},
		Payload: events.TicketReassignedPayload{
			NewAssigneeID:      assignee.ID,
			PreviousAssigneeID: previousAssignee,
			PreviousUnit:       ticket.PreviousUnit,
			Subject:            ticket.Subject,
		},
	})
	return ticket, nil
}

// AddReply appends a message to the ticket thread. The first admin reply to
// an OPEN ticket flips it to IN_PROGRESS.
func (s *TicketService) AddReply(ctx context.Context, requester *domain.User, ticketID, body string, attachments []string) (*domain.TicketMessage, *domain.Ticket, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil, apperrors.NewValidationError("reply body required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !s.canView(requester, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}

	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		AuthorID:    requester.ID,
		AuthorRole:  requester.Role,
		Body:        strings.TrimSpace(body),
		Attachments: attachments,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	opened := false
	oldStatus := ticket.Status
	if requester.IsAdmin() && ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
		opened = true
	}
	// Touches updated_at even when the status stays put.
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	if opened {
		s.recordStatusChange(ctx, requester, ticket, oldStatus, "admin_first_reply")
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReplyAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: requester.ID, Role: requester.Role},
		Payload: events.TicketReplyAddedPayload{
			MessageID:     msg.ID,
			OwnerID:       ticket.OwnerID,
			AuthorRole:    requester.Role,
			BodyPreview:   stringPreview(msg.Body, 120),
			OpenedTicket:  opened,
			TicketSubject: ticket.Subject,
		},
	})
	return msg, ticket, nil
}

// DeleteMessage removes exactly one message from a thread. Users may delete
// only their own messages; admins may delete any admin-authored message.
func (s *TicketService) DeleteMessage(ctx context.Context, requester *domain.User, ticketID, messageID string) error {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !s.canView(requester, ticket) {
		return apperrors.NewForbidden("access denied")
	}
	msg, err := s.messages.GetByID(ctx, ticket.ID, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("message", map[string]any{"message_id": messageID})
		}
		return apperrors.MapError(err)
	}
	if !msg.DeletableBy(requester.ID, requester.Role) {
		return apperrors.NewForbidden("cannot delete this message")
	}
	if err := s.messages.Delete(ctx, ticket.ID, messageID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// DeleteTicket removes a ticket entirely (admin action).
func (s *TicketService) DeleteTicket(ctx context.Context, requester *domain.User, ticketID string) error {
	if !requester.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return nil
}

// Summary returns open/in-progress/resolved counts.
func (s *TicketService) Summary(ctx context.Context) (*TicketSummary, error) {
	counts, err := s.tickets.CountsByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketSummary{
		Open:       counts[domain.TicketStatusOpen] + counts[domain.TicketStatusReopened],
		InProgress: counts[domain.TicketStatusInProgress],
		Resolved:   counts[domain.TicketStatusResolved],
	}, nil
}

// ActivityLogs lists the most recent audit entries.
func (s *TicketService) ActivityLogs(ctx context.Context, limit, offset int) ([]domain.ActivityLog, error) {
	entries, err := s.activity.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) canView(requester *domain.User, ticket *domain.Ticket) bool {
	if requester == nil {
		return false
	}
	if requester.IsAdmin() {
		return true
	}
	if ticket.OwnerID == requester.ID {
		return true
	}
	return ticket.AssigneeID != nil && *ticket.AssigneeID == requester.ID
}

func (s *TicketService) recordStatusChange(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus, comment string) {
	s.recordActivity(ctx, actor, ticket.ID, domain.ActivityStatusChange,
		map[string]any{"status": oldStatus},
		map[string]any{"status": ticket.Status, "comment": comment})
}

func (s *TicketService) recordActivity(ctx context.Context, actor *domain.User, ticketID string, changeType domain.ActivityChangeType, oldValue, newValue map[string]any) {
	if s.activity == nil {
		return
	}
	var actorID *string
	role := domain.RoleUser
	if actor != nil {
		id := actor.ID
		actorID = &id
		role = actor.Role
	}
	entry := &domain.ActivityLog{
		TicketID:   ticketID,
		ActorID:    actorID,
		ActorRole:  role,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	// Audit failures must not fail the mutation they describe.
	_ = s.activity.Create(ctx, entry)
}

func (s *TicketService) publishStatusChange(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus, comment string) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.TicketStatusChangedPayload{
			OwnerID:   ticket.OwnerID,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   comment,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// stringPreview shortens body to at most max runes, never splitting a
// multi-byte character.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
