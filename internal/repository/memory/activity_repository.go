package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ActivityLogRepository is an in-memory implementation of
// repository.ActivityLogRepository.
type ActivityLogRepository struct {
	mu      sync.RWMutex
	entries []*domain.ActivityLog
}

// NewActivityLogRepository creates an empty store.
func NewActivityLogRepository() *ActivityLogRepository {
	return &ActivityLogRepository{}
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *ActivityLogRepository) List(ctx context.Context, limit, offset int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sorted := make([]domain.ActivityLog, 0, len(r.entries))
	for _, entry := range r.entries {
		sorted = append(sorted, *entry)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if offset >= len(sorted) {
		return []domain.ActivityLog{}, nil
	}
	sorted = sorted[offset:]
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (r *ActivityLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ActivityLog
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, *entry)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}
