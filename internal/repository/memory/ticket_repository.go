package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// TicketRepository is an in-memory implementation of repository.TicketRepository.
// Users must be resolvable through the shared UserRepository for the
// aggregations that join display names.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	users   *UserRepository
}

// NewTicketRepository creates an empty store backed by the given user store.
func NewTicketRepository(users *UserRepository) *TicketRepository {
	return &TicketRepository{
		tickets: make(map[string]*domain.Ticket),
		users:   users,
	}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *TicketRepository) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.OwnerOrAssigneeID != nil {
			id := *filter.OwnerOrAssigneeID
			assigned := ticket.AssigneeID != nil && *ticket.AssigneeID == id
			if ticket.OwnerID != id && !assigned {
				continue
			}
		}
		if filter.Unit != nil && ticket.AssignedUnit != *filter.Unit {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && ticket.Type != *filter.Type {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *TicketRepository) CountsByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.TicketStatus]int)
	for _, ticket := range r.tickets {
		counts[ticket.Status]++
	}
	return counts, nil
}

func (r *TicketRepository) CountsByType(ctx context.Context) (map[domain.TicketType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.TicketType]int)
	for _, ticket := range r.tickets {
		counts[ticket.Type]++
	}
	return counts, nil
}

func (r *TicketRepository) CountsByPriority(ctx context.Context) (map[domain.TicketPriority]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.TicketPriority]int)
	for _, ticket := range r.tickets {
		counts[ticket.Priority]++
	}
	return counts, nil
}

func (r *TicketRepository) CountsByUnit(ctx context.Context) ([]repository.UnitCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.Unit]int)
	for _, ticket := range r.tickets {
		if ticket.AssignedUnit == "" {
			continue
		}
		counts[ticket.AssignedUnit]++
	}
	result := make([]repository.UnitCount, 0, len(counts))
	for unit, n := range counts {
		result = append(result, repository.UnitCount{Unit: unit, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Unit < result[j].Unit
	})
	return result, nil
}

func (r *TicketRepository) CreatedPerDay(ctx context.Context, from time.Time) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, ticket := range r.tickets {
		if ticket.CreatedAt.Before(from) {
			continue
		}
		counts[ticket.CreatedAt.In(from.Location()).Format("2006-01-02")]++
	}
	return counts, nil
}

func (r *TicketRepository) ClosedPerDay(ctx context.Context, from time.Time) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, ticket := range r.tickets {
		if ticket.UpdatedAt.Before(from) {
			continue
		}
		if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
			continue
		}
		counts[ticket.UpdatedAt.In(from.Location()).Format("2006-01-02")]++
	}
	return counts, nil
}

func (r *TicketRepository) ResolutionSeconds(ctx context.Context) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []float64
	for _, ticket := range r.tickets {
		if ticket.Status != domain.TicketStatusResolved {
			continue
		}
		result = append(result, ticket.UpdatedAt.Sub(ticket.CreatedAt).Seconds())
	}
	return result, nil
}

func (r *TicketRepository) AssigneeStatusCounts(ctx context.Context) ([]repository.AssigneeStatusCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type key struct {
		id     string
		status domain.TicketStatus
	}
	counts := make(map[key]int)
	for _, ticket := range r.tickets {
		if ticket.AssigneeID == nil {
			continue
		}
		counts[key{*ticket.AssigneeID, ticket.Status}]++
	}
	var result []repository.AssigneeStatusCount
	for k, n := range counts {
		name := k.id
		if r.users != nil {
			if user, err := r.users.GetByID(ctx, k.id); err == nil {
				name = user.Name
			}
		}
		result = append(result, repository.AssigneeStatusCount{
			AssigneeID:   k.id,
			AssigneeName: name,
			Status:       k.status,
			Count:        n,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AssigneeID != result[j].AssigneeID {
			return result[i].AssigneeID < result[j].AssigneeID
		}
		return result[i].Status < result[j].Status
	})
	return result, nil
}

func (r *TicketRepository) AssigneeResolutionAvg(ctx context.Context) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, ticket := range r.tickets {
		if ticket.AssigneeID == nil || ticket.Status != domain.TicketStatusResolved {
			continue
		}
		sums[*ticket.AssigneeID] += ticket.UpdatedAt.Sub(ticket.CreatedAt).Seconds()
		counts[*ticket.AssigneeID]++
	}
	result := make(map[string]float64, len(sums))
	for id, sum := range sums {
		result[id] = sum / float64(counts[id])
	}
	return result, nil
}

func (r *TicketRepository) Recent(ctx context.Context, limit int) ([]repository.TicketWithNames, error) {
	if limit <= 0 {
		limit = 10
	}
	r.mu.RLock()
	tickets := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		tickets = append(tickets, *ticket)
	}
	r.mu.RUnlock()

	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	if len(tickets) > limit {
		tickets = tickets[:limit]
	}

	result := make([]repository.TicketWithNames, 0, len(tickets))
	for _, ticket := range tickets {
		row := repository.TicketWithNames{Ticket: ticket, OwnerName: ticket.OwnerID}
		if r.users != nil {
			if owner, err := r.users.GetByID(ctx, ticket.OwnerID); err == nil {
				row.OwnerName = owner.Name
			}
			if ticket.AssigneeID != nil {
				if assignee, err := r.users.GetByID(ctx, *ticket.AssigneeID); err == nil {
					name := assignee.Name
					row.AssigneeName = &name
				}
			}
		}
		result = append(result, row)
	}
	return result, nil
}

// SetTimestamps overrides created/updated timestamps for test fixtures.
func (r *TicketRepository) SetTimestamps(id string, created, updated time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket, ok := r.tickets[id]; ok {
		ticket.CreatedAt = created
		ticket.UpdatedAt = updated
	}
}
