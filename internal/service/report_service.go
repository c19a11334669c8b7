package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AggregateCache stores serialized report snapshots between requests.
type AggregateCache interface {
	Get(ctx context.Context) []byte
	Set(ctx context.Context, payload []byte)
	Invalidate(ctx context.Context)
}

// ReportService computes read-only statistics over the ticket collection.
type ReportService struct {
	tickets repository.TicketRepository
	cache   AggregateCache
	cfg     config.ReportConfig
	loc     *time.Location
	logger  *zap.Logger

	// now is swappable for deterministic trend tests.
	now func() time.Time
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, cache AggregateCache, cfg config.ReportConfig, logger *zap.Logger) *ReportService {
	return &ReportService{
		tickets: tickets,
		cache:   cache,
		cfg:     cfg,
		loc:     cfg.Location(),
		logger:  logger,
		now:     time.Now,
	}
}

// sampleUnitDistribution is the documented placeholder shown when no ticket
// carries a unit, so an empty database still renders a populated chart.
var sampleUnitDistribution = []report.Bucket{
	{Label: string(domain.UnitHelpdesk), Count: 12},
	{Label: string(domain.UnitNetwork), Count: 9},
	{Label: string(domain.UnitServer), Count: 7},
	{Label: string(domain.UnitApplication), Count: 5},
	{Label: string(domain.UnitSecurity), Count: 3},
	{Label: string(domain.UnitHardware), Count: 2},
}

// StatusDistribution counts tickets grouped by status.
func (s *ReportService) StatusDistribution(ctx context.Context) ([]report.Bucket, error) {
	counts, err := s.tickets.CountsByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	order := []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusReopened,
	}
	buckets := make([]report.Bucket, 0, len(order))
	for _, status := range order {
		buckets = append(buckets, report.Bucket{Label: string(status), Count: counts[status]})
	}
	return buckets, nil
}

// TypeDistribution counts tickets grouped by type.
func (s *ReportService) TypeDistribution(ctx context.Context) ([]report.Bucket, error) {
	counts, err := s.tickets.CountsByType(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	order := []domain.TicketType{
		domain.TicketTypeIncident,
		domain.TicketTypeBug,
		domain.TicketTypeMaintenance,
		domain.TicketTypeRequest,
		domain.TicketTypeService,
	}
	buckets := make([]report.Bucket, 0, len(order))
	for _, ticketType := range order {
		buckets = append(buckets, report.Bucket{Label: string(ticketType), Count: counts[ticketType]})
	}
	return buckets, nil
}

// PriorityDistribution counts tickets grouped by priority, zero-filled over
// the fixed ordered priority set.
func (s *ReportService) PriorityDistribution(ctx context.Context) ([]report.Bucket, error) {
	counts, err := s.tickets.CountsByPriority(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return fillPriorities(counts), nil
}

// UnitDistribution counts tickets grouped by assigned unit, sorted by count
// descending. When no ticket carries a unit and the fallback is enabled, the
// placeholder sample set is returned instead of an empty array.
func (s *ReportService) UnitDistribution(ctx context.Context) ([]report.Bucket, error) {
	counts, err := s.tickets.CountsByUnit(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(counts) == 0 && s.cfg.SampleUnitFallback {
		return sampleUnitDistribution, nil
	}
	buckets := make([]report.Bucket, 0, len(counts))
	for _, bucket := range counts {
		buckets = append(buckets, report.Bucket{Label: string(bucket.Unit), Count: bucket.Count})
	}
	return buckets, nil
}

// Trends returns per-calendar-day created and resolved/closed counts for the
// last windowDays days, oldest first, labeled with the weekday.
func (s *ReportService) Trends(ctx context.Context, windowDays int) ([]report.TrendPoint, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	// Day buckets are keyed in the configured report zone; the repository
	// derives the same zone from the cutoff's location.
	now := s.now().In(s.loc)
	from := startOfDay(now).AddDate(0, 0, -(windowDays - 1))

	created, err := s.tickets.CreatedPerDay(ctx, from)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	closed, err := s.tickets.ClosedPerDay(ctx, from)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return buildTrend(created, closed, now, windowDays), nil
}

// AvgResolutionTime is the mean of updatedAt-createdAt over resolved tickets.
func (s *ReportService) AvgResolutionTime(ctx context.Context) (report.ResolutionTime, error) {
	durations, err := s.tickets.ResolutionSeconds(ctx)
	if err != nil {
		return report.ResolutionTime{}, apperrors.MapError(err)
	}
	return meanResolution(durations), nil
}

// AssigneePerformance ranks assignees by resolution rate, tie-broken by
// total ticket count. An empty dataset yields a single placeholder row.
func (s *ReportService) AssigneePerformance(ctx context.Context) ([]report.AssigneePerformance, error) {
	rows, err := s.tickets.AssigneeStatusCounts(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	avgs, err := s.tickets.AssigneeResolutionAvg(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rankAssignees(rows, avgs), nil
}

// RecentTickets returns the latest tickets with owner/assignee names.
func (s *ReportService) RecentTickets(ctx context.Context, limit int) ([]report.RecentTicket, error) {
	rows, err := s.tickets.Recent(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := make([]report.RecentTicket, 0, len(rows))
	for _, row := range rows {
		recent := report.RecentTicket{
			ID:           row.ID,
			Subject:      row.Subject,
			Status:       string(row.Status),
			Priority:     string(row.Priority),
			AssignedUnit: string(row.AssignedUnit),
			OwnerName:    row.OwnerName,
			CreatedAt:    row.CreatedAt,
		}
		if row.AssigneeName != nil {
			recent.AssigneeName = *row.AssigneeName
		}
		result = append(result, recent)
	}
	return result, nil
}

// Snapshot assembles the full aggregate snapshot used for rendering,
// consulting the short-lived cache first.
func (s *ReportService) Snapshot(ctx context.Context) (*report.Data, error) {
	if payload := s.cacheGet(ctx); payload != nil {
		var data report.Data
		if err := json.Unmarshal(payload, &data); err == nil {
			observability.ReportCacheHitsTotal.WithLabelValues("hit").Inc()
			return &data, nil
		}
		s.logger.Warn("discarding undecodable report cache entry")
	}
	observability.ReportCacheHitsTotal.WithLabelValues("miss").Inc()

	data := &report.Data{GeneratedAt: s.now()}

	var err error
	if data.StatusDistribution, err = s.StatusDistribution(ctx); err != nil {
		return nil, err
	}
	for _, bucket := range data.StatusDistribution {
		data.TotalTickets += bucket.Count
	}
	if data.TypeDistribution, err = s.TypeDistribution(ctx); err != nil {
		return nil, err
	}
	if data.PriorityDistribution, err = s.PriorityDistribution(ctx); err != nil {
		return nil, err
	}
	if data.UnitDistribution, err = s.UnitDistribution(ctx); err != nil {
		return nil, err
	}
	if data.Trends, err = s.Trends(ctx, 7); err != nil {
		return nil, err
	}
	if data.AvgResolution, err = s.AvgResolutionTime(ctx); err != nil {
		return nil, err
	}
	if data.Performance, err = s.AssigneePerformance(ctx); err != nil {
		return nil, err
	}
	if data.Recent, err = s.RecentTickets(ctx, 10); err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(data); marshalErr == nil {
		s.cacheSet(ctx, payload)
	}
	return data, nil
}

func (s *ReportService) cacheGet(ctx context.Context) []byte {
	if s.cache == nil {
		return nil
	}
	return s.cache.Get(ctx)
}

func (s *ReportService) cacheSet(ctx context.Context, payload []byte) {
	if s.cache != nil {
		s.cache.Set(ctx, payload)
	}
}

func fillPriorities(counts map[domain.TicketPriority]int) []report.Bucket {
	labels := map[domain.TicketPriority]string{
		domain.TicketPriorityLow:      "Low",
		domain.TicketPriorityMedium:   "Medium",
		domain.TicketPriorityHigh:     "High",
		domain.TicketPriorityCritical: "Critical",
	}
	buckets := make([]report.Bucket, 0, len(labels))
	for _, priority := range domain.Priorities() {
		buckets = append(buckets, report.Bucket{Label: labels[priority], Count: counts[priority]})
	}
	return buckets
}

func buildTrend(created, closed map[string]int, now time.Time, windowDays int) []report.TrendPoint {
	points := make([]report.TrendPoint, 0, windowDays)
	start := startOfDay(now).AddDate(0, 0, -(windowDays - 1))
	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		points = append(points, report.TrendPoint{
			Date:    key,
			Weekday: day.Format("Mon"),
			Created: created[key],
			Closed:  closed[key],
		})
	}
	return points
}

func meanResolution(seconds []float64) report.ResolutionTime {
	if len(seconds) == 0 {
		return report.ResolutionTime{}
	}
	var sum float64
	for _, v := range seconds {
		sum += v
	}
	hours := sum / float64(len(seconds)) / 3600
	return report.ResolutionTime{
		Hours:      round1(hours),
		Days:       round1(hours / 24),
		SampleSize: len(seconds),
	}
}

func rankAssignees(rows []repository.AssigneeStatusCount, avgSeconds map[string]float64) []report.AssigneePerformance {
	byAssignee := make(map[string]*report.AssigneePerformance)
	for _, row := range rows {
		entry, ok := byAssignee[row.AssigneeID]
		if !ok {
			entry = &report.AssigneePerformance{AssigneeID: row.AssigneeID, Name: row.AssigneeName}
			byAssignee[row.AssigneeID] = entry
		}
		entry.Total += row.Count
		switch row.Status {
		case domain.TicketStatusResolved:
			entry.Resolved += row.Count
		case domain.TicketStatusClosed:
			entry.Closed += row.Count
		case domain.TicketStatusInProgress:
			entry.InProgress += row.Count
		case domain.TicketStatusOpen, domain.TicketStatusReopened:
			entry.Open += row.Count
		}
	}
	if len(byAssignee) == 0 {
		return []report.AssigneePerformance{{Name: "No assignee data"}}
	}

	result := make([]report.AssigneePerformance, 0, len(byAssignee))
	for id, entry := range byAssignee {
		entry.ResolutionRate = percentage(entry.Resolved+entry.Closed, entry.Total)
		entry.AvgResolutionHours = round1(avgSeconds[id] / 3600)
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ResolutionRate != result[j].ResolutionRate {
			return result[i].ResolutionRate > result[j].ResolutionRate
		}
		return result[i].Total > result[j].Total
	})
	return result
}

// percentage guards the zero-total case so dashboards never show NaN.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
