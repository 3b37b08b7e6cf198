package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// AssignmentStat aggregates assigned tickets per agent. Solved counts
// tickets whose solved_at is set, i.e. currently SOLVED or CLOSED.
type AssignmentStat struct {
	AgentID  string
	Assigned int
	Solved   int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate locks the row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	// UpdateStatusIf transitions status only when the row still holds
	// the expected value; false means the precondition no longer held.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.TicketStatus, solvedAt *time.Time) (bool, error)
	// ClaimAssignee sets the assignee only when the slot is empty.
	ClaimAssignee(ctx context.Context, id, agentID string) (bool, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	AssignmentStats(ctx context.Context) ([]AssignmentStat, error)
	StatusesByIDs(ctx context.Context, ids []string) (map[string]domain.TicketStatus, error)
}

type ticketRepository struct {
	q Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(q Querier) TicketRepository {
	return &ticketRepository{q: q}
}

const ticketColumns = `id, number, requester_user_id, assignee_user_id, category_id,
       subject, status, priority, created_at, updated_at, first_response_at, solved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (requester_user_id, assignee_user_id, category_id, subject, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, number, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		ticket.RequesterID,
		ticket.AssigneeID,
		ticket.CategoryID,
		ticket.Subject,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.Number, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.RequesterID,
		&ticket.AssigneeID,
		&ticket.CategoryID,
		&ticket.Subject,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.SolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assignee_user_id=$1, category_id=$2, subject=$3, status=$4,
            priority=$5, first_response_at=$6, solved_at=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.q.Exec(ctx, query,
		ticket.AssigneeID,
		ticket.CategoryID,
		ticket.Subject,
		ticket.Status,
		ticket.Priority,
		ticket.FirstResponseAt,
		ticket.SolvedAt,
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

func (r *ticketRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.TicketStatus, solvedAt *time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET status=$1, solved_at=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.q.Exec(ctx, query, to, solvedAt, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ClaimAssignee(ctx context.Context, id, agentID string) (bool, error) {
	const query = `
        UPDATE tickets SET assignee_user_id=$1, updated_at=NOW()
        WHERE id=$2 AND assignee_user_id IS NULL`
	cmd, err := r.q.Exec(ctx, query, agentID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	rows, err := r.q.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE status=$1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) AssignmentStats(ctx context.Context) ([]AssignmentStat, error) {
	const query = `
        SELECT assignee_user_id, COUNT(*), COUNT(*) FILTER (WHERE solved_at IS NOT NULL)
        FROM tickets WHERE assignee_user_id IS NOT NULL
        GROUP BY assignee_user_id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AssignmentStat
	for rows.Next() {
		var stat AssignmentStat
		if err := rows.Scan(&stat.AgentID, &stat.Assigned, &stat.Solved); err != nil {
			return nil, err
		}
		result = append(result, stat)
	}
	return result, rows.Err()
}

func (r *ticketRepository) StatusesByIDs(ctx context.Context, ids []string) (map[string]domain.TicketStatus, error) {
	result := make(map[string]domain.TicketStatus, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.q.Query(ctx, `SELECT id, status FROM tickets WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var status domain.TicketStatus
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		result[id] = status
	}
	return result, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.RequesterID,
			&ticket.AssigneeID,
			&ticket.CategoryID,
			&ticket.Subject,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.FirstResponseAt,
			&ticket.SolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
