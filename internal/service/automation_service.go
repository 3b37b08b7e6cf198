package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// AutomationService runs the recurring sweep over the four time-based
// rules. Each ticket transition is its own committed unit of work and
// re-checks its precondition at write time, so re-running a sweep never
// duplicates a transition or an activity entry. A failure on one ticket
// is recorded and the sweep moves on.
type AutomationService struct {
	uow         repository.UnitOfWork
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	settings    *SettingsService
	deduper     ReminderDeduper
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// AutomationDependencies bundles collaborators for the sweep.
type AutomationDependencies struct {
	UnitOfWork     repository.UnitOfWork
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	Settings       *SettingsService
	Deduper        ReminderDeduper
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Now            func() time.Time
}

// SweepFailure records one ticket the sweep could not process.
type SweepFailure struct {
	TicketID string `json:"ticket_id"`
	Rule     string `json:"rule"`
	Reason   string `json:"reason"`
}

// SweepReport summarizes one sweep run.
type SweepReport struct {
	Reminded           int            `json:"reminded"`
	AutoSolved         int            `json:"auto_solved"`
	AutoClosed         int            `json:"auto_closed"`
	AttachmentsDeleted int            `json:"attachments_deleted"`
	Failures           []SweepFailure `json:"failures"`
}

// NewAutomationService constructs the service.
func NewAutomationService(deps AutomationDependencies) *AutomationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deduper := deps.Deduper
	if deduper == nil {
		deduper = NewMemoryReminderDeduper(now)
	}
	return &AutomationService{
		uow:         deps.UnitOfWork,
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		settings:    deps.Settings,
		deduper:     deduper,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         now,
	}
}

// RunSweep evaluates all enabled rules once.
func (s *AutomationService) RunSweep(ctx context.Context) (*SweepReport, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Failures: []SweepFailure{}}

	if settings.AutoSolveEnabled || settings.PendingReminderEnabled {
		pending, err := s.tickets.ListByStatus(ctx, domain.TicketStatusPending)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, ticket := range pending {
			s.sweepPendingTicket(ctx, settings, ticket, report)
		}
	}

	if settings.AutoCloseEnabled {
		solved, err := s.tickets.ListByStatus(ctx, domain.TicketStatusSolved)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, ticket := range solved {
			s.sweepSolvedTicket(ctx, settings, ticket, report)
		}
	}

	if settings.AttachmentRetentionEnabled {
		s.sweepAttachments(ctx, settings, report)
	}

	s.logger.Info("automation sweep finished",
		zap.Int("reminded", report.Reminded),
		zap.Int("auto_solved", report.AutoSolved),
		zap.Int("auto_closed", report.AutoClosed),
		zap.Int("attachments_deleted", report.AttachmentsDeleted),
		zap.Int("failures", len(report.Failures)))
	return report, nil
}

// sweepPendingTicket applies auto-solve, then the pending reminder, to
// one PENDING ticket. Both rules key on the last public staff reply;
// a ticket that never had one is left alone.
func (s *AutomationService) sweepPendingTicket(ctx context.Context, settings *domain.AutomationSettings, ticket domain.Ticket, report *SweepReport) {
	times, err := s.comments.ReplyTimes(ctx, ticket.ID)
	if err != nil {
		report.Failures = append(report.Failures, SweepFailure{TicketID: ticket.ID, Rule: "pending", Reason: err.Error()})
		s.logger.Warn("sweep: reply times", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	lastStaff := times.LastStaffPublicReplyAt
	if lastStaff == nil {
		return
	}
	now := s.now()
	elapsed := now.Sub(*lastStaff)

	if settings.AutoSolveEnabled &&
		elapsed >= hours(settings.AutoSolveHours) &&
		(times.LastRequesterReplyAt == nil || !times.LastRequesterReplyAt.After(*lastStaff)) {
		solved, err := s.transition(ctx, ticket.ID, domain.TicketStatusPending, domain.TicketStatusSolved, &now)
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{TicketID: ticket.ID, Rule: "auto_solve", Reason: err.Error()})
			s.logger.Warn("sweep: auto-solve", zap.String("ticket_id", ticket.ID), zap.Error(err))
			return
		}
		if solved {
			report.AutoSolved++
		}
		return
	}

	if settings.PendingReminderEnabled && elapsed >= hours(settings.PendingReminderHours) {
		ttl := 2 * hours(settings.PendingReminderHours)
		first, err := s.deduper.FirstSeen(ctx, ticket.ID, *lastStaff, ttl)
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{TicketID: ticket.ID, Rule: "pending_reminder", Reason: err.Error()})
			s.logger.Warn("sweep: reminder dedup", zap.String("ticket_id", ticket.ID), zap.Error(err))
			return
		}
		if !first {
			return
		}
		s.publish(ctx, events.Event{
			Type:     events.EventPendingReminder,
			TicketID: ticket.ID,
			Payload:  events.PendingReminderPayload{PendingSince: *lastStaff},
		})
		report.Reminded++
	}
}

func (s *AutomationService) sweepSolvedTicket(ctx context.Context, settings *domain.AutomationSettings, ticket domain.Ticket, report *SweepReport) {
	if ticket.SolvedAt == nil {
		return
	}
	if s.now().Sub(*ticket.SolvedAt) < hours(settings.AutoCloseHours) {
		return
	}
	closed, err := s.transition(ctx, ticket.ID, domain.TicketStatusSolved, domain.TicketStatusClosed, ticket.SolvedAt)
	if err != nil {
		report.Failures = append(report.Failures, SweepFailure{TicketID: ticket.ID, Rule: "auto_close", Reason: err.Error()})
		s.logger.Warn("sweep: auto-close", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	if closed {
		report.AutoClosed++
	}
}

func (s *AutomationService) sweepAttachments(ctx context.Context, settings *domain.AutomationSettings, report *SweepReport) {
	cutoff := s.now().AddDate(0, 0, -settings.AttachmentRetentionDays)
	keys, err := s.attachments.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		report.Failures = append(report.Failures, SweepFailure{Rule: "attachment_retention", Reason: err.Error()})
		s.logger.Warn("sweep: attachment retention", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	report.AttachmentsDeleted = len(keys)
	s.publish(ctx, events.Event{
		Type:    events.EventAttachmentsPurged,
		Payload: events.AttachmentsPurgedPayload{StorageKeys: keys},
	})
}

// transition moves one ticket between statuses as its own committed
// unit of work. The conditional update re-checks the precondition at
// write time; losing the check means another writer got there first and
// the transition is skipped without error.
func (s *AutomationService) transition(ctx context.Context, ticketID string, from, to domain.TicketStatus, solvedAt *time.Time) (bool, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	applied, err := tx.Tickets().UpdateStatusIf(ctx, ticketID, from, to, solvedAt)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}
	if err := tx.Activity().Append(ctx, &domain.ActivityEntry{
		TicketID: ticketID,
		Action:   domain.ActionStatusChanged,
		Details:  map[string]any{"old_status": from, "new_status": to, "automated": true},
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Payload:  events.TicketStatusChangedPayload{OldStatus: from, NewStatus: to},
	})
	return true, nil
}

func (s *AutomationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Actor = domain.SystemActor()
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func hours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}
