package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// SessionStats aggregates one agent's sessions for the assignment view.
// TotalDuration and ClosedCount cover closed sessions only; TotalReplies
// sums reply counters across all sessions.
type SessionStats struct {
	AgentID       string
	SessionCount  int
	ClosedCount   int
	TotalDuration time.Duration
	LastLoginAt   time.Time
	Online        bool
	TotalReplies  int
}

// SessionRepository stores agent login/logout spans.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.AgentSession) error
	GetByID(ctx context.Context, id string) (*domain.AgentSession, error)
	// GetActiveByAgent returns (nil, nil) when the agent has no open session.
	GetActiveByAgent(ctx context.Context, agentID string) (*domain.AgentSession, error)
	Close(ctx context.Context, id string, logoutAt time.Time, duration time.Duration) error
	ListActiveOlderThan(ctx context.Context, cutoff time.Time) ([]domain.AgentSession, error)
	// IncrementActiveReplyCount bumps the open session's counter, if any.
	IncrementActiveReplyCount(ctx context.Context, agentID string) error
	StatsByAgent(ctx context.Context) ([]SessionStats, error)
}

type sessionRepository struct {
	q Querier
}

// NewSessionRepository builds repository.
func NewSessionRepository(q Querier) SessionRepository {
	return &sessionRepository{q: q}
}

const sessionColumns = `id, agent_user_id, login_at, logout_at, duration_seconds, reply_count`

func (r *sessionRepository) Create(ctx context.Context, session *domain.AgentSession) error {
	const query = `
        INSERT INTO agent_sessions (agent_user_id, login_at)
        VALUES ($1,$2)
        RETURNING id`
	return r.q.QueryRow(ctx, query, session.AgentID, session.LoginAt).Scan(&session.ID)
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.AgentSession, error) {
	return r.fetchSingle(ctx, `SELECT `+sessionColumns+` FROM agent_sessions WHERE id=$1`, id)
}

func (r *sessionRepository) GetActiveByAgent(ctx context.Context, agentID string) (*domain.AgentSession, error) {
	session, err := r.fetchSingle(ctx,
		`SELECT `+sessionColumns+` FROM agent_sessions WHERE agent_user_id=$1 AND logout_at IS NULL`, agentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

func (r *sessionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.AgentSession, error) {
	var session domain.AgentSession
	var durationSec *int64
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&session.ID,
		&session.AgentID,
		&session.LoginAt,
		&session.LogoutAt,
		&durationSec,
		&session.ReplyCount,
	); err != nil {
		return nil, err
	}
	if durationSec != nil {
		d := time.Duration(*durationSec) * time.Second
		session.Duration = &d
	}
	return &session, nil
}

func (r *sessionRepository) Close(ctx context.Context, id string, logoutAt time.Time, duration time.Duration) error {
	const query = `
        UPDATE agent_sessions SET logout_at=$1, duration_seconds=$2
        WHERE id=$3 AND logout_at IS NULL`
	cmd, err := r.q.Exec(ctx, query, logoutAt, int64(duration.Seconds()), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *sessionRepository) ListActiveOlderThan(ctx context.Context, cutoff time.Time) ([]domain.AgentSession, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM agent_sessions WHERE logout_at IS NULL AND login_at < $1`
	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AgentSession
	for rows.Next() {
		var session domain.AgentSession
		var durationSec *int64
		if err := rows.Scan(
			&session.ID,
			&session.AgentID,
			&session.LoginAt,
			&session.LogoutAt,
			&durationSec,
			&session.ReplyCount,
		); err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}

func (r *sessionRepository) IncrementActiveReplyCount(ctx context.Context, agentID string) error {
	const query = `
        UPDATE agent_sessions SET reply_count = reply_count + 1
        WHERE agent_user_id=$1 AND logout_at IS NULL`
	_, err := r.q.Exec(ctx, query, agentID)
	return err
}

func (r *sessionRepository) StatsByAgent(ctx context.Context) ([]SessionStats, error) {
	const query = `
        SELECT agent_user_id,
               COUNT(*),
               COUNT(*) FILTER (WHERE logout_at IS NOT NULL),
               COALESCE(SUM(duration_seconds) FILTER (WHERE logout_at IS NOT NULL), 0),
               MAX(login_at),
               BOOL_OR(logout_at IS NULL),
               COALESCE(SUM(reply_count), 0)
        FROM agent_sessions
        GROUP BY agent_user_id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionStats
	for rows.Next() {
		var stats SessionStats
		var totalSec int64
		if err := rows.Scan(
			&stats.AgentID,
			&stats.SessionCount,
			&stats.ClosedCount,
			&totalSec,
			&stats.LastLoginAt,
			&stats.Online,
			&stats.TotalReplies,
		); err != nil {
			return nil, err
		}
		stats.TotalDuration = time.Duration(totalSec) * time.Second
		result = append(result, stats)
	}
	return result, rows.Err()
}
