package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	GetByID(ctx context.Context, ticketID, messageID string) (*domain.TicketMessage, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
	Delete(ctx context.Context, ticketID, messageID string) error
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, author_user_id, author_role, body, attachments)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.AuthorID,
		msg.AuthorRole,
		msg.Body,
		msg.Attachments,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *ticketMessageRepository) GetByID(ctx context.Context, ticketID, messageID string) (*domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, author_user_id, author_role, body, attachments, created_at
        FROM ticket_messages WHERE ticket_id=$1 AND id=$2`
	var msg domain.TicketMessage
	if err := r.pool.QueryRow(ctx, query, ticketID, messageID).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.AuthorID,
		&msg.AuthorRole,
		&msg.Body,
		&msg.Attachments,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, author_user_id, author_role, body, attachments, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorID,
			&msg.AuthorRole,
			&msg.Body,
			&msg.Attachments,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *ticketMessageRepository) Delete(ctx context.Context, ticketID, messageID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_messages WHERE ticket_id=$1 AND id=$2`, ticketID, messageID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
