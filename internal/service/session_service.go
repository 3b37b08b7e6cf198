package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// staleSessionAge is how long an open session may sit before the
// cleanup sweep assumes the logout signal was lost.
const staleSessionAge = 24 * time.Hour

// SessionService tracks agent login/logout spans. Start and End for the
// same agent are serialized so at most one session per agent is ever
// open; different agents proceed independently.
type SessionService struct {
	uow      repository.UnitOfWork
	sessions repository.SessionRepository
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	agentLocks map[string]*sync.Mutex
}

// SessionDependencies bundles collaborators for the session service.
type SessionDependencies struct {
	UnitOfWork  repository.UnitOfWork
	SessionRepo repository.SessionRepository
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		uow:        deps.UnitOfWork,
		sessions:   deps.SessionRepo,
		logger:     logger,
		now:        now,
		agentLocks: make(map[string]*sync.Mutex),
	}
}

// Start opens a session for the acting agent. A still-open previous
// session is force-closed first, its duration measured against now.
func (s *SessionService) Start(ctx context.Context, actor domain.Actor) (*domain.AgentSession, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	lock := s.lockFor(actor.ID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	active, err := tx.Sessions().GetActiveByAgent(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if active != nil {
		if err := tx.Sessions().Close(ctx, active.ID, now, now.Sub(active.LoginAt)); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.logger.Info("force-closed lingering session",
			zap.String("agent_id", actor.ID),
			zap.String("session_id", active.ID))
	}

	session := &domain.AgentSession{
		AgentID: actor.ID,
		LoginAt: now,
	}
	if err := tx.Sessions().Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// End closes a session, fixing its duration.
func (s *SessionService) End(ctx context.Context, actor domain.Actor, sessionID string) (*domain.AgentSession, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session", map[string]any{"session_id": sessionID})
		}
		return nil, apperrors.MapError(err)
	}
	if session.AgentID != actor.ID && actor.Kind != domain.ActorAdmin {
		return nil, apperrors.NewForbidden("session belongs to another agent")
	}
	if !session.Active() {
		return nil, apperrors.NewConflict("session already closed", map[string]any{"session_id": sessionID})
	}

	lock := s.lockFor(session.AgentID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	duration := now.Sub(session.LoginAt)
	if err := s.sessions.Close(ctx, sessionID, now, duration); err != nil {
		return nil, apperrors.MapError(err)
	}
	session.LogoutAt = &now
	session.Duration = &duration
	return session, nil
}

// CleanupOld force-closes sessions whose logout signal never arrived,
// using loginAt+24h (capped at now) as the synthetic logout time.
// Returns the number of sessions closed.
func (s *SessionService) CleanupOld(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.sessions.ListActiveOlderThan(ctx, now.Add(-staleSessionAge))
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	closed := 0
	for _, session := range stale {
		logoutAt := session.LoginAt.Add(staleSessionAge)
		if logoutAt.After(now) {
			logoutAt = now
		}
		if err := s.sessions.Close(ctx, session.ID, logoutAt, logoutAt.Sub(session.LoginAt)); err != nil {
			// Already closed by a concurrent End; nothing to recover.
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return closed, apperrors.MapError(err)
		}
		closed++
	}
	if closed > 0 {
		s.logger.Info("closed stale sessions", zap.Int("count", closed))
	}
	return closed, nil
}

func (s *SessionService) lockFor(agentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.agentLocks[agentID]
	if !ok {
		lock = &sync.Mutex{}
		s.agentLocks[agentID] = lock
	}
	return lock
}
