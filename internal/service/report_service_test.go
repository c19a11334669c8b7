package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

type fakeCache struct {
	payload []byte
	gets    int
	sets    int
}

func (c *fakeCache) Get(context.Context) []byte {
	c.gets++
	return c.payload
}

func (c *fakeCache) Set(_ context.Context, payload []byte) {
	c.sets++
	c.payload = payload
}

func (c *fakeCache) Invalidate(context.Context) {
	c.payload = nil
}

type reportFixture struct {
	service *ReportService
	tickets *memory.TicketRepository
	users   *memory.UserRepository
	cache   *fakeCache
	now     time.Time
}

func newReportFixture(t *testing.T, cfg config.ReportConfig) *reportFixture {
	t.Helper()
	users := memory.NewUserRepository()
	tickets := memory.NewTicketRepository(users)
	cache := &fakeCache{}
	svc := NewReportService(tickets, cache, cfg, zap.NewNop())

	now := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &reportFixture{service: svc, tickets: tickets, users: users, cache: cache, now: now}
}

func (f *reportFixture) seedUser(t *testing.T, name string, unit domain.Unit) *domain.User {
	t.Helper()
	user := &domain.User{Name: name, Email: name + "@example.com", Role: domain.RoleUser, Unit: unit}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return user
}

func (f *reportFixture) seedTicket(t *testing.T, owner *domain.User, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		OwnerID:      owner.ID,
		Subject:      "fixture",
		Description:  "fixture",
		Type:         domain.TicketTypeIncident,
		Status:       domain.TicketStatusOpen,
		AssignedUnit: domain.UnitHelpdesk,
		Priority:     domain.TicketPriorityMedium,
	}
	if mutate != nil {
		mutate(ticket)
	}
	if err := f.tickets.Create(context.Background(), ticket); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return ticket
}

func TestPriorityDistributionZeroFilled(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{})
	owner := f.seedUser(t, "owner", domain.UnitHelpdesk)
	f.seedTicket(t, owner, func(ticket *domain.Ticket) { ticket.Priority = domain.TicketPriorityCritical })
	f.seedTicket(t, owner, func(ticket *domain.Ticket) { ticket.Priority = domain.TicketPriorityCritical })

	buckets, err := f.service.PriorityDistribution(context.Background())
	if err != nil {
		t.Fatalf("priority distribution: %v", err)
	}

	wantLabels := []string{"Low", "Medium", "High", "Critical"}
	wantCounts := []int{0, 0, 0, 2}
	if len(buckets) != len(wantLabels) {
		t.Fatalf("expected %d buckets, got %d", len(wantLabels), len(buckets))
	}
	for i := range buckets {
		if buckets[i].Label != wantLabels[i] || buckets[i].Count != wantCounts[i] {
			t.Fatalf("bucket %d: expected %s=%d, got %s=%d",
				i, wantLabels[i], wantCounts[i], buckets[i].Label, buckets[i].Count)
		}
	}
}

func TestUnitDistributionSampleFallback(t *testing.T) {
	withFallback := newReportFixture(t, config.ReportConfig{SampleUnitFallback: true})
	buckets, err := withFallback.service.UnitDistribution(context.Background())
	if err != nil {
		t.Fatalf("unit distribution: %v", err)
	}
	if len(buckets) != len(domain.Units()) {
		t.Fatalf("expected sample buckets for every unit, got %d", len(buckets))
	}

	withoutFallback := newReportFixture(t, config.ReportConfig{SampleUnitFallback: false})
	buckets, err = withoutFallback.service.UnitDistribution(context.Background())
	if err != nil {
		t.Fatalf("unit distribution: %v", err)
	}
	if len(buckets) != 0 {
		t.Fatalf("expected empty result with fallback disabled, got %d", len(buckets))
	}
}

func TestUnitDistributionSortedByCount(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{SampleUnitFallback: true})
	owner := f.seedUser(t, "owner", domain.UnitHelpdesk)
	for i := 0; i < 3; i++ {
		f.seedTicket(t, owner, func(ticket *domain.Ticket) { ticket.AssignedUnit = domain.UnitServer })
	}
	f.seedTicket(t, owner, func(ticket *domain.Ticket) { ticket.AssignedUnit = domain.UnitNetwork })

	buckets, err := f.service.UnitDistribution(context.Background())
	if err != nil {
		t.Fatalf("unit distribution: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Label != string(domain.UnitServer) || buckets[0].Count != 3 {
		t.Fatalf("expected Server Unit=3 first, got %s=%d", buckets[0].Label, buckets[0].Count)
	}
}

func TestTrendsCoverTheFullWindow(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{})
	owner := f.seedUser(t, "owner", domain.UnitHelpdesk)

	yesterday := f.now.AddDate(0, 0, -1)
	created := f.seedTicket(t, owner, nil)
	f.tickets.SetTimestamps(created.ID, yesterday, yesterday)

	resolved := f.seedTicket(t, owner, func(ticket *domain.Ticket) { ticket.Status = domain.TicketStatusResolved })
	f.tickets.SetTimestamps(resolved.ID, f.now.AddDate(0, 0, -3), yesterday)

	points, err := f.service.Trends(context.Background(), 7)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("expected 7 points, got %d", len(points))
	}
	if points[6].Date != f.now.Format("2006-01-02") {
		t.Fatalf("expected newest day last, got %s", points[6].Date)
	}

	key := yesterday.Format("2006-01-02")
	for _, p := range points {
		if p.Date == key {
			if p.Created != 1 || p.Closed != 1 {
				t.Fatalf("expected created=1 closed=1 on %s, got %d/%d", key, p.Created, p.Closed)
			}
			return
		}
	}
	t.Fatalf("day %s missing from trend window", key)
}

func TestTrendsBucketDaysInTheConfiguredZone(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{Timezone: "America/New_York"})
	owner := f.seedUser(t, "owner", domain.UnitHelpdesk)

	// 01:30 UTC on the 17th is still the evening of the 16th in New York.
	lateNight := time.Date(2024, 5, 17, 1, 30, 0, 0, time.UTC)
	ticket := f.seedTicket(t, owner, nil)
	f.tickets.SetTimestamps(ticket.ID, lateNight, lateNight)

	points, err := f.service.Trends(context.Background(), 7)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}

	counts := make(map[string]int, len(points))
	for _, p := range points {
		counts[p.Date] = p.Created
	}
	if counts["2024-05-16"] != 1 {
		t.Fatalf("expected the ticket bucketed on 2024-05-16, got %v", counts)
	}
	if counts["2024-05-17"] != 0 {
		t.Fatalf("expected no tickets on 2024-05-17, got %v", counts)
	}
}

func TestAvgResolutionTime(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{})
	owner := f.seedUser(t, "owner", domain.UnitHelpdesk)

	// Two resolved tickets taking 2h and 4h respectively.
	first := f.seedTicket(t, owner, func(ticket *domain.Ticket) { ticket.Status = domain.TicketStatusResolved })
	f.tickets.SetTimestamps(first.ID, f.now.Add(-2*time.Hour), f.now)
	second := f.seedTicket(t, owner, func(ticket *domain.Ticket) { ticket.Status = domain.TicketStatusResolved })
	f.tickets.SetTimestamps(second.ID, f.now.Add(-4*time.Hour), f.now)

	// Open tickets must not shift the average.
	f.seedTicket(t, owner, nil)

	result, err := f.service.AvgResolutionTime(context.Background())
	if err != nil {
		t.Fatalf("avg resolution: %v", err)
	}
	if result.SampleSize != 2 {
		t.Fatalf("expected sample size 2, got %d", result.SampleSize)
	}
	if result.Hours != 3.0 {
		t.Fatalf("expected 3.0 hours, got %v", result.Hours)
	}
}

func TestAvgResolutionTimeEmpty(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{})
	result, err := f.service.AvgResolutionTime(context.Background())
	if err != nil {
		t.Fatalf("avg resolution: %v", err)
	}
	if result.SampleSize != 0 || result.Hours != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestAssigneePerformanceRanking(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{})
	owner := f.seedUser(t, "owner", domain.UnitHelpdesk)
	fast := f.seedUser(t, "fast", domain.UnitServer)
	slow := f.seedUser(t, "slow", domain.UnitNetwork)

	// fast: 2 resolved of 2 -> 100%. slow: 1 resolved of 2 -> 50%.
	for i := 0; i < 2; i++ {
		f.seedTicket(t, owner, func(ticket *domain.Ticket) {
			ticket.AssigneeID = &fast.ID
			ticket.Status = domain.TicketStatusResolved
		})
	}
	f.seedTicket(t, owner, func(ticket *domain.Ticket) {
		ticket.AssigneeID = &slow.ID
		ticket.Status = domain.TicketStatusResolved
	})
	f.seedTicket(t, owner, func(ticket *domain.Ticket) {
		ticket.AssigneeID = &slow.ID
		ticket.Status = domain.TicketStatusOpen
	})

	rows, err := f.service.AssigneePerformance(context.Background())
	if err != nil {
		t.Fatalf("assignee performance: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].AssigneeID != fast.ID {
		t.Fatalf("expected the 100%% assignee ranked first, got %s", rows[0].Name)
	}
	if rows[0].ResolutionRate != 100 {
		t.Fatalf("expected 100, got %v", rows[0].ResolutionRate)
	}
	if rows[1].ResolutionRate != 50 {
		t.Fatalf("expected 50, got %v", rows[1].ResolutionRate)
	}
}

func TestAssigneePerformancePlaceholder(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{})
	rows, err := f.service.AssigneePerformance(context.Background())
	if err != nil {
		t.Fatalf("assignee performance: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "No assignee data" {
		t.Fatalf("expected placeholder row, got %+v", rows)
	}
}

func TestSnapshotCaching(t *testing.T) {
	f := newReportFixture(t, config.ReportConfig{SampleUnitFallback: true})
	owner := f.seedUser(t, "owner", domain.UnitHelpdesk)
	f.seedTicket(t, owner, nil)

	ctx := context.Background()
	first, err := f.service.Snapshot(ctx)
	if err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	if f.cache.sets != 1 {
		t.Fatalf("expected snapshot to be cached, sets=%d", f.cache.sets)
	}

	// A second snapshot is served from cache: new tickets are invisible
	// until the cache is invalidated.
	f.seedTicket(t, owner, nil)
	second, err := f.service.Snapshot(ctx)
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	if second.TotalTickets != first.TotalTickets {
		t.Fatalf("expected cached totals %d, got %d", first.TotalTickets, second.TotalTickets)
	}

	f.cache.Invalidate(ctx)
	third, err := f.service.Snapshot(ctx)
	if err != nil {
		t.Fatalf("third snapshot: %v", err)
	}
	if third.TotalTickets != 2 {
		t.Fatalf("expected fresh totals after invalidation, got %d", third.TotalTickets)
	}
}
