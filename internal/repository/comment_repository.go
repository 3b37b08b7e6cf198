package repository

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// ReplyTimes carries the timestamps the automation rules key on.
// LastStaffPublicReplyAt ignores internal notes; LastRequesterReplyAt
// covers any requester comment.
type ReplyTimes struct {
	LastStaffPublicReplyAt *time.Time
	LastRequesterReplyAt   *time.Time
}

// AgentTicketReplies counts one agent's non-system comments on one ticket.
type AgentTicketReplies struct {
	AgentID  string
	TicketID string
	Replies  int
}

// CommentRepository stores the immutable ticket thread.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
	ReplyTimes(ctx context.Context, ticketID string) (ReplyTimes, error)
	// StaffReplyCountsByTicket counts staff comments per agent on one
	// ticket, internal notes included.
	StaffReplyCountsByTicket(ctx context.Context, ticketID string) (map[string]int, error)
	StaffReplyTotals(ctx context.Context) ([]AgentTicketReplies, error)
}

type commentRepository struct {
	q Querier
}

// NewCommentRepository builds repository.
func NewCommentRepository(q Querier) CommentRepository {
	return &commentRepository{q: q}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, author_id, author_kind, body, is_internal, is_system)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.AuthorKind,
		comment.Body,
		comment.IsInternal,
		comment.IsSystem,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_kind, body, is_internal, is_system, created_at
        FROM comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.AuthorKind,
			&comment.Body,
			&comment.IsInternal,
			&comment.IsSystem,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) ReplyTimes(ctx context.Context, ticketID string) (ReplyTimes, error) {
	const query = `
        SELECT
            MAX(created_at) FILTER (WHERE author_kind IN ('AGENT','ADMIN') AND NOT is_internal),
            MAX(created_at) FILTER (WHERE author_kind = 'REQUESTER')
        FROM comments WHERE ticket_id=$1`
	var times ReplyTimes
	if err := r.q.QueryRow(ctx, query, ticketID).Scan(&times.LastStaffPublicReplyAt, &times.LastRequesterReplyAt); err != nil {
		return ReplyTimes{}, err
	}
	return times, nil
}

func (r *commentRepository) StaffReplyCountsByTicket(ctx context.Context, ticketID string) (map[string]int, error) {
	const query = `
        SELECT author_id, COUNT(*)
        FROM comments
        WHERE ticket_id=$1 AND author_kind IN ('AGENT','ADMIN') AND author_id IS NOT NULL
        GROUP BY author_id`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var agentID string
		var count int
		if err := rows.Scan(&agentID, &count); err != nil {
			return nil, err
		}
		result[agentID] = count
	}
	return result, rows.Err()
}

func (r *commentRepository) StaffReplyTotals(ctx context.Context) ([]AgentTicketReplies, error) {
	const query = `
        SELECT author_id, ticket_id, COUNT(*)
        FROM comments
        WHERE author_kind IN ('AGENT','ADMIN') AND author_id IS NOT NULL AND NOT is_system
        GROUP BY author_id, ticket_id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgentTicketReplies
	for rows.Next() {
		var row AgentTicketReplies
		if err := rows.Scan(&row.AgentID, &row.TicketID, &row.Replies); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
