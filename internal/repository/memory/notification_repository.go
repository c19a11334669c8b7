package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationRepository is an in-memory implementation of
// repository.NotificationRepository.
type NotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// FailCreates makes Create return an error, for testing the
	// swallow-on-failure contract of the side-channel.
	FailCreates bool
}

// NewNotificationRepository creates an empty store.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreates {
		return errors.New("notification store unavailable")
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = time.Now()
	notification.IsRead = false
	clone := *notification
	r.notifications[notification.ID] = &clone
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	notification, ok := r.notifications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *notification
	return &clone, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Notification
	for _, notification := range r.notifications {
		if notification.UserID == userID {
			result = append(result, *notification)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.notifications[id]
	if !ok {
		return pgx.ErrNoRows
	}
	notification.IsRead = true
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notification := range r.notifications {
		if notification.UserID == userID {
			notification.IsRead = true
		}
	}
	return nil
}
