package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.calls++
}

type ticketFixture struct {
	service       *TicketService
	notifications *memory.NotificationRepository
	tickets       *memory.TicketRepository
	activity      *memory.ActivityLogRepository
	cache         *countingInvalidator
	admin         *domain.User
	user          *domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	ctx := context.Background()

	users := memory.NewUserRepository()
	admin := &domain.User{Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, Unit: domain.UnitHelpdesk, Verified: true}
	user := &domain.User{Name: "Dana", Email: "dana@example.com", Role: domain.RoleUser, Unit: domain.UnitNetwork, Verified: true}
	if err := users.Create(ctx, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	tickets := memory.NewTicketRepository(users)
	notifications := memory.NewNotificationRepository()
	activity := memory.NewActivityLogRepository()
	cache := &countingInvalidator{}
	dispatcher := events.NewInMemoryDispatcher()

	NewNotificationService(notifications, dispatcher, zap.NewNop()).RegisterHandlers()

	svc := NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		MessageRepo:  memory.NewTicketMessageRepository(),
		UserRepo:     users,
		ActivityRepo: activity,
		Dispatcher:   dispatcher,
		ReportCache:  cache,
	})

	return &ticketFixture{
		service:       svc,
		notifications: notifications,
		tickets:       tickets,
		activity:      activity,
		cache:         cache,
		admin:         admin,
		user:          user,
	}
}

func (f *ticketFixture) newTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), f.user.ID, TicketCreateInput{
		Subject:      "VPN drops every hour",
		Description:  "Connection resets hourly since Monday.",
		Type:         domain.TicketTypeIncident,
		AssignedUnit: domain.UnitNetwork,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func domainErrCode(t *testing.T, err error) string {
	t.Helper()
	var derr *apperrors.DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return derr.Code
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.newTicket(t)

	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN, got %s", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("expected MEDIUM default priority, got %s", ticket.Priority)
	}
	if ticket.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input TicketCreateInput
	}{
		{"missing unit", TicketCreateInput{Subject: "s", Description: "d", Type: domain.TicketTypeBug}},
		{"bad type", TicketCreateInput{Subject: "s", Description: "d", Type: "NOPE", AssignedUnit: domain.UnitServer}},
		{"blank subject", TicketCreateInput{Subject: "  ", Description: "d", Type: domain.TicketTypeBug, AssignedUnit: domain.UnitServer}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.CreateTicket(ctx, f.user.ID, tc.input); err == nil {
				t.Fatal("expected validation error")
			} else if code := domainErrCode(t, err); code != "VALIDATION_FAILED" {
				t.Fatalf("expected VALIDATION_FAILED, got %s", code)
			}
		})
	}
}

func TestCloseOnlyFromOpen(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	closed, err := f.service.CloseTicket(ctx, f.user, ticket.ID)
	if err != nil {
		t.Fatalf("close open ticket: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("expected CLOSED, got %s", closed.Status)
	}

	if _, err := f.service.CloseTicket(ctx, f.user, ticket.ID); err == nil {
		t.Fatal("expected conflict closing a closed ticket")
	} else if code := domainErrCode(t, err); code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", code)
	}
}

func TestReopenOnlyFromClosed(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	if _, err := f.service.ReopenTicket(ctx, f.user, ticket.ID); err == nil {
		t.Fatal("expected conflict reopening an open ticket")
	}

	if _, err := f.service.CloseTicket(ctx, f.user, ticket.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := f.service.ReopenTicket(ctx, f.user, ticket.ID)
	if err != nil {
		t.Fatalf("reopen closed ticket: %v", err)
	}
	if reopened.Status != domain.TicketStatusReopened {
		t.Fatalf("expected REOPENED, got %s", reopened.Status)
	}
}

func TestAdminFirstReplyOpensTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	_, updated, err := f.service.AddReply(ctx, f.admin, ticket.ID, "Looking into it.", nil)
	if err != nil {
		t.Fatalf("admin reply: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("expected IN_PROGRESS after first admin reply, got %s", updated.Status)
	}

	// Owner gets both the opened and the reply notification.
	inbox, err := f.notifications.ListByUser(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	seen := map[domain.NotificationType]bool{}
	for _, n := range inbox {
		seen[n.Type] = true
	}
	if !seen[domain.NotificationAdminOpened] || !seen[domain.NotificationAdminReply] {
		t.Fatalf("expected ADMIN_OPENED and ADMIN_REPLY notifications, got %v", seen)
	}

	// A second admin reply must not change the status again.
	_, updated, err = f.service.AddReply(ctx, f.admin, ticket.ID, "Still on it.", nil)
	if err != nil {
		t.Fatalf("second admin reply: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("expected status to stay IN_PROGRESS, got %s", updated.Status)
	}
}

func TestUserReplyDoesNotOpenTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	_, updated, err := f.service.AddReply(ctx, f.user, ticket.ID, "Any update?", nil)
	if err != nil {
		t.Fatalf("user reply: %v", err)
	}
	if updated.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN, got %s", updated.Status)
	}
}

func TestResolveIsAdminOnlyAndIdempotent(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	if _, err := f.service.ResolveTicket(ctx, f.user, ticket.ID); err == nil {
		t.Fatal("expected forbidden for non-admin resolve")
	} else if code := domainErrCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}

	resolved, err := f.service.ResolveTicket(ctx, f.admin, ticket.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Fatalf("expected RESOLVED, got %s", resolved.Status)
	}

	again, err := f.service.ResolveTicket(ctx, f.admin, ticket.ID)
	if err != nil {
		t.Fatalf("second resolve should be a no-op: %v", err)
	}
	if again.Status != domain.TicketStatusResolved {
		t.Fatalf("expected RESOLVED, got %s", again.Status)
	}
}

func TestReassignTracksPreviousAssignment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	assignee := &domain.User{Name: "Sam", Email: "sam@example.com", Role: domain.RoleUser, Unit: domain.UnitServer}
	if err := f.service.users.Create(ctx, assignee); err != nil {
		t.Fatalf("seed assignee: %v", err)
	}

	ticket := f.newTicket(t)
	updated, err := f.service.ReassignTicket(ctx, f.admin, ticket.ID, assignee.ID)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}

	if updated.AssigneeID == nil || *updated.AssigneeID != assignee.ID {
		t.Fatal("expected new assignee recorded")
	}
	if updated.AssignedUnit != domain.UnitServer {
		t.Fatalf("expected ticket to adopt assignee unit, got %s", updated.AssignedUnit)
	}
	if updated.PreviousUnit == nil || *updated.PreviousUnit != domain.UnitNetwork {
		t.Fatal("expected previous unit preserved")
	}

	inbox, err := f.notifications.ListByUser(ctx, assignee.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(inbox) != 1 || inbox[0].Type != domain.NotificationReassigned {
		t.Fatalf("expected one REASSIGNED notification, got %v", inbox)
	}
}

func TestTicketVisibility(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	outsider := &domain.User{Name: "Eve", Email: "eve@example.com", Role: domain.RoleUser}
	if err := f.service.users.Create(ctx, outsider); err != nil {
		t.Fatalf("seed outsider: %v", err)
	}

	ticket := f.newTicket(t)
	if _, _, err := f.service.GetTicket(ctx, outsider, ticket.ID); err == nil {
		t.Fatal("expected forbidden for unrelated user")
	} else if code := domainErrCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}

	if _, _, err := f.service.GetTicket(ctx, f.admin, ticket.ID); err != nil {
		t.Fatalf("admin should see every ticket: %v", err)
	}
}

func TestUpdateTicketRejectsInvalidTransition(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	reopened := domain.TicketStatusReopened
	if _, err := f.service.UpdateTicket(ctx, f.user, ticket.ID, TicketUpdateInput{Status: &reopened}); err == nil {
		t.Fatal("expected conflict for OPEN -> REOPENED")
	} else if code := domainErrCode(t, err); code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", code)
	}
}

func TestMessageDeletionRules(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	userMsg, _, err := f.service.AddReply(ctx, f.user, ticket.ID, "mine", nil)
	if err != nil {
		t.Fatalf("user reply: %v", err)
	}
	adminMsg, _, err := f.service.AddReply(ctx, f.admin, ticket.ID, "admin note", nil)
	if err != nil {
		t.Fatalf("admin reply: %v", err)
	}

	if err := f.service.DeleteMessage(ctx, f.user, ticket.ID, adminMsg.ID); err == nil {
		t.Fatal("user must not delete admin messages")
	}
	if err := f.service.DeleteMessage(ctx, f.admin, ticket.ID, userMsg.ID); err == nil {
		t.Fatal("admin must not delete user messages")
	}
	if err := f.service.DeleteMessage(ctx, f.user, ticket.ID, userMsg.ID); err != nil {
		t.Fatalf("user deleting own message: %v", err)
	}
	if err := f.service.DeleteMessage(ctx, f.admin, ticket.ID, adminMsg.ID); err != nil {
		t.Fatalf("admin deleting admin message: %v", err)
	}
}

func TestMutationsInvalidateReportCache(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket := f.newTicket(t)
	if f.cache.calls != 1 {
		t.Fatalf("expected invalidation on create, got %d", f.cache.calls)
	}

	if _, err := f.service.CloseTicket(ctx, f.user, ticket.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f.cache.calls != 2 {
		t.Fatalf("expected invalidation on close, got %d", f.cache.calls)
	}

	if err := f.service.DeleteTicket(ctx, f.admin, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.cache.calls != 3 {
		t.Fatalf("expected invalidation on delete, got %d", f.cache.calls)
	}
}

func TestStatusChangesAreAudited(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t)

	if _, err := f.service.CloseTicket(ctx, f.user, ticket.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := f.activity.ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	if entries[0].ChangeType != domain.ActivityStatusChange {
		t.Fatalf("expected STATUS_CHANGE, got %s", entries[0].ChangeType)
	}
}

func TestNotificationFailuresAreSwallowed(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	f.notifications.FailCreates = true

	ticket := f.newTicket(t)
	if _, _, err := f.service.AddReply(ctx, f.admin, ticket.ID, "Working on it.", nil); err != nil {
		t.Fatalf("reply must succeed even when notifications fail: %v", err)
	}

	inbox, err := f.notifications.ListByUser(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(inbox) != 0 {
		t.Fatalf("expected no stored notifications, got %d", len(inbox))
	}
}

func TestStringPreviewKeepsRunesWhole(t *testing.T) {
	in := strings.Repeat("ü", 10)
	got := stringPreview(in, 8)
	if got != strings.Repeat("ü", 5)+"..." {
		t.Fatalf("unexpected preview %q", got)
	}
	if short := stringPreview("héllo", 120); short != "héllo" {
		t.Fatalf("short input must pass through, got %q", short)
	}
}
