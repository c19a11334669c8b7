package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketMessageRepository is an in-memory implementation of
// repository.TicketMessageRepository.
type TicketMessageRepository struct {
	mu       sync.RWMutex
	byTicket map[string]map[string]*domain.TicketMessage
}

// NewTicketMessageRepository creates an empty store.
func NewTicketMessageRepository() *TicketMessageRepository {
	return &TicketMessageRepository{
		byTicket: make(map[string]map[string]*domain.TicketMessage),
	}
}

func (r *TicketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if r.byTicket[msg.TicketID] == nil {
		r.byTicket[msg.TicketID] = make(map[string]*domain.TicketMessage)
	}
	clone := *msg
	r.byTicket[msg.TicketID][msg.ID] = &clone
	return nil
}

func (r *TicketMessageRepository) GetByID(ctx context.Context, ticketID, messageID string) (*domain.TicketMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.byTicket[ticketID][messageID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *msg
	return &clone, nil
}

func (r *TicketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.TicketMessage, 0, len(r.byTicket[ticketID]))
	for _, msg := range r.byTicket[ticketID] {
		result = append(result, *msg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *TicketMessageRepository) Delete(ctx context.Context, ticketID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTicket[ticketID][messageID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byTicket[ticketID], messageID)
	return nil
}
