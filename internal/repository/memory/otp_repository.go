package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// OTPRepository is an in-memory implementation of repository.OTPRepository.
type OTPRepository struct {
	mu    sync.RWMutex
	codes map[string]*domain.OTPCode
}

// NewOTPRepository creates an empty store.
func NewOTPRepository() *OTPRepository {
	return &OTPRepository{codes: make(map[string]*domain.OTPCode)}
}

func (r *OTPRepository) Create(ctx context.Context, code *domain.OTPCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	code.CreatedAt = time.Now()
	clone := *code
	r.codes[code.ID] = &clone
	return nil
}

func (r *OTPRepository) GetActive(ctx context.Context, userID string, purpose domain.OTPPurpose, codeStr string) (*domain.OTPCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var latest *domain.OTPCode
	for _, code := range r.codes {
		if code.UserID != userID || code.Purpose != purpose || code.Code != codeStr {
			continue
		}
		if !code.Usable(now) {
			continue
		}
		if latest == nil || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	clone := *latest
	return &clone, nil
}

func (r *OTPRepository) Consume(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.codes[id]; ok {
		now := time.Now()
		code.ConsumedAt = &now
	}
	return nil
}
