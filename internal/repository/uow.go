package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is one atomic unit of work. Comment creation bundles the comment
// insert, the ticket field update, the session reply increment and the
// activity append behind a single Commit; anything less would let the
// audit trail drift from ticket state.
type Tx interface {
	Tickets() TicketRepository
	Comments() CommentRepository
	Activity() ActivityRepository
	Sessions() SessionRepository
	TimeEntries() TimeEntryRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWork opens transaction scopes.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a UnitOfWork over a pgx pool.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) Begin(ctx context.Context) (Tx, error) {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Tickets() TicketRepository        { return NewTicketRepository(t.tx) }
func (t *pgxTx) Comments() CommentRepository      { return NewCommentRepository(t.tx) }
func (t *pgxTx) Activity() ActivityRepository     { return NewActivityRepository(t.tx) }
func (t *pgxTx) Sessions() SessionRepository      { return NewSessionRepository(t.tx) }
func (t *pgxTx) TimeEntries() TimeEntryRepository { return NewTimeEntryRepository(t.tx) }

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
