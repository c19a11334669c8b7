package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters. Listing is a full scan with
// equality filters; there is no pagination on this surface.
type TicketFilter struct {
	// OwnerOrAssigneeID scopes the listing to tickets the user owns or is
	// assigned to. Nil means no role scoping (admin).
	OwnerOrAssigneeID *string
	Unit              *domain.Unit
	Status            *domain.TicketStatus
	Type              *domain.TicketType
}

// UnitCount is one bucket of the tickets-by-unit aggregation.
type UnitCount struct {
	Unit  domain.Unit
	Count int
}

// AssigneeStatusCount is one (assignee, status) bucket for performance metrics.
type AssigneeStatusCount struct {
	AssigneeID   string
	AssigneeName string
	Status       domain.TicketStatus
	Count        int
}

// TicketWithNames carries a ticket together with resolved display names.
type TicketWithNames struct {
	domain.Ticket
	OwnerName    string
	AssigneeName *string
}

// TicketRepository encapsulates ticket persistence and read-side aggregation.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)

	CountsByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
	CountsByType(ctx context.Context) (map[domain.TicketType]int, error)
	CountsByPriority(ctx context.Context) (map[domain.TicketPriority]int, error)
	CountsByUnit(ctx context.Context) ([]UnitCount, error)
	CreatedPerDay(ctx context.Context, from time.Time) (map[string]int, error)
	ClosedPerDay(ctx context.Context, from time.Time) (map[string]int, error)
	ResolutionSeconds(ctx context.Context) ([]float64, error)
	AssigneeStatusCounts(ctx context.Context) ([]AssigneeStatusCount, error)
	AssigneeResolutionAvg(ctx context.Context) (map[string]float64, error)
	Recent(ctx context.Context, limit int) ([]TicketWithNames, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_user_id, subject, description, type, status, assigned_unit,
               assignee_user_id, previous_assignee_user_id, previous_assigned_unit,
               priority, attachments, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (owner_user_id, subject, description, type, status, assigned_unit,
            assignee_user_id, priority, attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Description,
		ticket.Type,
		ticket.Status,
		ticket.AssignedUnit,
		ticket.AssigneeID,
		ticket.Priority,
		ticket.Attachments,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, type=$3, status=$4, assigned_unit=$5,
            assignee_user_id=$6, previous_assignee_user_id=$7, previous_assigned_unit=$8,
            priority=$9, attachments=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Type,
		ticket.Status,
		ticket.AssignedUnit,
		ticket.AssigneeID,
		ticket.PreviousAssigneeID,
		ticket.PreviousUnit,
		ticket.Priority,
		ticket.Attachments,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id).Scan(
		ticketScanTargets(&ticket)...,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerOrAssigneeID != nil {
		args = append(args, *filter.OwnerOrAssigneeID)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(owner_user_id=%s OR assignee_user_id=%s)", placeholder, placeholder))
	}
	if filter.Unit != nil {
		args = append(args, *filter.Unit)
		clauses = append(clauses, fmt.Sprintf("assigned_unit=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountsByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	counts := make(map[domain.TicketStatus]int)
	err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`, func(key string, n int) {
		counts[domain.TicketStatus(key)] = n
	})
	return counts, err
}

func (r *ticketRepository) CountsByType(ctx context.Context) (map[domain.TicketType]int, error) {
	counts := make(map[domain.TicketType]int)
	err := r.groupCount(ctx, `SELECT type, COUNT(*) FROM tickets GROUP BY type`, func(key string, n int) {
		counts[domain.TicketType(key)] = n
	})
	return counts, err
}

func (r *ticketRepository) CountsByPriority(ctx context.Context) (map[domain.TicketPriority]int, error) {
	counts := make(map[domain.TicketPriority]int)
	err := r.groupCount(ctx, `SELECT priority, COUNT(*) FROM tickets GROUP BY priority`, func(key string, n int) {
		counts[domain.TicketPriority(key)] = n
	})
	return counts, err
}

func (r *ticketRepository) CountsByUnit(ctx context.Context) ([]UnitCount, error) {
	const query = `
        SELECT assigned_unit, COUNT(*) AS n FROM tickets
        WHERE assigned_unit <> ''
        GROUP BY assigned_unit ORDER BY n DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []UnitCount
	for rows.Next() {
		var bucket UnitCount
		if err := rows.Scan(&bucket.Unit, &bucket.Count); err != nil {
			return nil, err
		}
		result = append(result, bucket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CreatedPerDay(ctx context.Context, from time.Time) (map[string]int, error) {
	const query = `
        SELECT TO_CHAR(created_at AT TIME ZONE $2, 'YYYY-MM-DD'), COUNT(*)
        FROM tickets WHERE created_at >= $1
        GROUP BY 1`
	return r.dayCount(ctx, query, from)
}

func (r *ticketRepository) ClosedPerDay(ctx context.Context, from time.Time) (map[string]int, error) {
	const query = `
        SELECT TO_CHAR(updated_at AT TIME ZONE $2, 'YYYY-MM-DD'), COUNT(*)
        FROM tickets WHERE updated_at >= $1 AND status IN ('RESOLVED','CLOSED')
        GROUP BY 1`
	return r.dayCount(ctx, query, from)
}

func (r *ticketRepository) ResolutionSeconds(ctx context.Context) ([]float64, error) {
	const query = `
        SELECT EXTRACT(EPOCH FROM (updated_at - created_at))
        FROM tickets WHERE status='RESOLVED'`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []float64
	for rows.Next() {
		var seconds float64
		if err := rows.Scan(&seconds); err != nil {
			return nil, err
		}
		result = append(result, seconds)
	}
	return result, rows.Err()
}

func (r *ticketRepository) AssigneeStatusCounts(ctx context.Context) ([]AssigneeStatusCount, error) {
	const query = `
        SELECT t.assignee_user_id, u.name, t.status, COUNT(*)
        FROM tickets t JOIN users u ON u.id = t.assignee_user_id
        WHERE t.assignee_user_id IS NOT NULL
        GROUP BY t.assignee_user_id, u.name, t.status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AssigneeStatusCount
	for rows.Next() {
		var row AssigneeStatusCount
		if err := rows.Scan(&row.AssigneeID, &row.AssigneeName, &row.Status, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *ticketRepository) AssigneeResolutionAvg(ctx context.Context) (map[string]float64, error) {
	const query = `
        SELECT assignee_user_id, AVG(EXTRACT(EPOCH FROM (updated_at - created_at)))
        FROM tickets
        WHERE assignee_user_id IS NOT NULL AND status='RESOLVED'
        GROUP BY assignee_user_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var id string
		var seconds float64
		if err := rows.Scan(&id, &seconds); err != nil {
			return nil, err
		}
		result[id] = seconds
	}
	return result, rows.Err()
}

func (r *ticketRepository) Recent(ctx context.Context, limit int) ([]TicketWithNames, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
        SELECT t.id, t.owner_user_id, t.subject, t.description, t.type, t.status, t.assigned_unit,
               t.assignee_user_id, t.previous_assignee_user_id, t.previous_assigned_unit,
               t.priority, t.attachments, t.created_at, t.updated_at,
               o.name, a.name
        FROM tickets t
        JOIN users o ON o.id = t.owner_user_id
        LEFT JOIN users a ON a.id = t.assignee_user_id
        ORDER BY t.created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TicketWithNames
	for rows.Next() {
		var row TicketWithNames
		targets := ticketScanTargets(&row.Ticket)
		targets = append(targets, &row.OwnerName, &row.AssigneeName)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *ticketRepository) groupCount(ctx context.Context, query string, collect func(string, int)) error {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		collect(key, n)
	}
	return rows.Err()
}

// dayCount buckets rows by calendar day in the zone the cutoff carries, so
// day boundaries match the caller's regardless of the session timezone.
func (r *ticketRepository) dayCount(ctx context.Context, query string, from time.Time) (map[string]int, error) {
	zone := from.Location().String()
	if zone == "" || zone == "Local" {
		zone = "UTC"
	}
	counts := make(map[string]int)
	rows, err := r.pool.Query(ctx, query, from, zone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

func ticketScanTargets(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Type,
		&ticket.Status,
		&ticket.AssignedUnit,
		&ticket.AssigneeID,
		&ticket.PreviousAssigneeID,
		&ticket.PreviousUnit,
		&ticket.Priority,
		&ticket.Attachments,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketScanTargets(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
