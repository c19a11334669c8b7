package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// OTPRepository manages one-time verification and reset codes.
type OTPRepository interface {
	Create(ctx context.Context, code *domain.OTPCode) error
	GetActive(ctx context.Context, userID string, purpose domain.OTPPurpose, code string) (*domain.OTPCode, error)
	Consume(ctx context.Context, id string) error
}

type otpRepository struct {
	pool *pgxpool.Pool
}

// NewOTPRepository constructs repository.
func NewOTPRepository(pool *pgxpool.Pool) OTPRepository {
	return &otpRepository{pool: pool}
}

func (r *otpRepository) Create(ctx context.Context, code *domain.OTPCode) error {
	const query = `
        INSERT INTO otp_codes (user_id, code, purpose, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		code.UserID,
		code.Code,
		code.Purpose,
		code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt)
}

func (r *otpRepository) GetActive(ctx context.Context, userID string, purpose domain.OTPPurpose, codeStr string) (*domain.OTPCode, error) {
	const query = `
        SELECT id, user_id, code, purpose, expires_at, consumed_at, created_at
        FROM otp_codes
        WHERE user_id=$1 AND purpose=$2 AND code=$3 AND consumed_at IS NULL AND expires_at > NOW()
        ORDER BY created_at DESC LIMIT 1`
	var code domain.OTPCode
	if err := r.pool.QueryRow(ctx, query, userID, purpose, codeStr).Scan(
		&code.ID,
		&code.UserID,
		&code.Code,
		&code.Purpose,
		&code.ExpiresAt,
		&code.ConsumedAt,
		&code.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *otpRepository) Consume(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE otp_codes SET consumed_at=NOW() WHERE id=$1`, id)
	return err
}
