package domain

import "testing"

func TestCanTransitionGuards(t *testing.T) {
	cases := []struct {
		name    string
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{"open to closed", TicketStatusOpen, TicketStatusClosed, true},
		{"open to in progress", TicketStatusOpen, TicketStatusInProgress, true},
		{"open to resolved", TicketStatusOpen, TicketStatusResolved, true},
		{"open to reopened", TicketStatusOpen, TicketStatusReopened, false},
		{"in progress to closed", TicketStatusInProgress, TicketStatusClosed, false},
		{"in progress to resolved", TicketStatusInProgress, TicketStatusResolved, true},
		{"resolved to closed", TicketStatusResolved, TicketStatusClosed, false},
		{"resolved to resolved", TicketStatusResolved, TicketStatusResolved, true},
		{"closed to reopened", TicketStatusClosed, TicketStatusReopened, true},
		{"closed to open", TicketStatusClosed, TicketStatusOpen, false},
		{"closed to resolved", TicketStatusClosed, TicketStatusResolved, false},
		{"reopened to in progress", TicketStatusReopened, TicketStatusInProgress, true},
		{"reopened to resolved", TicketStatusReopened, TicketStatusResolved, true},
		{"reopened to closed", TicketStatusReopened, TicketStatusClosed, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("%s: CanTransition(%s, %s) = %v, want %v", tc.name, tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestCloseOnlyFromOpen(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed, TicketStatusReopened} {
		if CanTransition(status, TicketStatusClosed) {
			t.Errorf("close must be rejected from %s", status)
		}
	}
	if !CanTransition(TicketStatusOpen, TicketStatusClosed) {
		t.Error("close must be permitted from OPEN")
	}
}

func TestReopenOnlyFromClosed(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusReopened} {
		if CanTransition(status, TicketStatusReopened) {
			t.Errorf("reopen must be rejected from %s", status)
		}
	}
	if !CanTransition(TicketStatusClosed, TicketStatusReopened) {
		t.Error("reopen must be permitted from CLOSED")
	}
}

func TestMessageDeletableBy(t *testing.T) {
	userMsg := &TicketMessage{AuthorID: "u1", AuthorRole: RoleUser}
	adminMsg := &TicketMessage{AuthorID: "a1", AuthorRole: RoleAdmin}

	if !userMsg.DeletableBy("u1", RoleUser) {
		t.Error("author should be able to delete own message")
	}
	if userMsg.DeletableBy("u2", RoleUser) {
		t.Error("non-author user must not delete another user's message")
	}
	if userMsg.DeletableBy("a1", RoleAdmin) {
		t.Error("admin deletion is role-based: user messages stay")
	}
	if !adminMsg.DeletableBy("a2", RoleAdmin) {
		t.Error("any admin may delete an admin-authored message")
	}
	if adminMsg.DeletableBy("u1", RoleUser) {
		t.Error("user must not delete admin messages")
	}
}
