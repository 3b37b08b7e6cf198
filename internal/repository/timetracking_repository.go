package repository

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// AgentTicketDuration sums one agent's tracked time on one ticket.
type AgentTicketDuration struct {
	AgentID  string
	TicketID string
	Total    time.Duration
}

// TimeEntryRepository stores the append-only work ledger.
type TimeEntryRepository interface {
	Create(ctx context.Context, entry *domain.TimeEntry) error
	SumByAgentForTicket(ctx context.Context, ticketID string) (map[string]time.Duration, error)
	TotalsByAgentTicket(ctx context.Context) ([]AgentTicketDuration, error)
}

type timeEntryRepository struct {
	q Querier
}

// NewTimeEntryRepository builds repository.
func NewTimeEntryRepository(q Querier) TimeEntryRepository {
	return &timeEntryRepository{q: q}
}

func (r *timeEntryRepository) Create(ctx context.Context, entry *domain.TimeEntry) error {
	const query = `
        INSERT INTO time_entries (ticket_id, agent_user_id, duration_seconds)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		entry.TicketID,
		entry.AgentID,
		int64(entry.Duration.Seconds()),
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *timeEntryRepository) SumByAgentForTicket(ctx context.Context, ticketID string) (map[string]time.Duration, error) {
	const query = `
        SELECT agent_user_id, COALESCE(SUM(duration_seconds), 0)
        FROM time_entries WHERE ticket_id=$1
        GROUP BY agent_user_id`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]time.Duration)
	for rows.Next() {
		var agentID string
		var totalSec int64
		if err := rows.Scan(&agentID, &totalSec); err != nil {
			return nil, err
		}
		result[agentID] = time.Duration(totalSec) * time.Second
	}
	return result, rows.Err()
}

func (r *timeEntryRepository) TotalsByAgentTicket(ctx context.Context) ([]AgentTicketDuration, error) {
	const query = `
        SELECT agent_user_id, ticket_id, COALESCE(SUM(duration_seconds), 0)
        FROM time_entries
        GROUP BY agent_user_id, ticket_id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgentTicketDuration
	for rows.Next() {
		var row AgentTicketDuration
		var totalSec int64
		if err := rows.Scan(&row.AgentID, &row.TicketID, &totalSec); err != nil {
			return nil, err
		}
		row.Total = time.Duration(totalSec) * time.Second
		result = append(result, row)
	}
	return result, rows.Err()
}
