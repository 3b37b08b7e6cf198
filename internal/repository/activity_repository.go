package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// ActivityRepository stores the append-only audit trail. Entries are
// never updated or deleted; reads return them ordered by
// (created_at, seq).
type ActivityRepository interface {
	Append(ctx context.Context, entry *domain.ActivityEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error)
}

type activityRepository struct {
	q Querier
}

// NewActivityRepository builds repository.
func NewActivityRepository(q Querier) ActivityRepository {
	return &activityRepository{q: q}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityEntry) error {
	const query = `
        INSERT INTO activity_log (ticket_id, user_id, action, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, seq, created_at`
	return r.q.QueryRow(ctx, query,
		entry.TicketID,
		entry.UserID,
		entry.Action,
		entry.Details,
	).Scan(&entry.ID, &entry.Sequence, &entry.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT id, seq, ticket_id, user_id, action, details, created_at
        FROM activity_log WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityEntry
	for rows.Next() {
		var entry domain.ActivityEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Sequence,
			&entry.TicketID,
			&entry.UserID,
			&entry.Action,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
