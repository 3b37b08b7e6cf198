package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// TicketService is the lifecycle state machine. Every transition that
// changes status, priority, assignee or category writes exactly one
// activity entry; comment creation and its side effects commit as one
// unit of work.
type TicketService struct {
	uow        repository.UnitOfWork
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	activity   repository.ActivityRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	UnitOfWork   repository.UnitOfWork
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	ActivityRepo repository.ActivityRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject    string
	Body       string
	Priority   domain.TicketPriority
	CategoryID *string
}

// TicketUpdateInput describes the manual override payload. Nil fields
// are left untouched.
type TicketUpdateInput struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssigneeID *string
	CategoryID *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		uow:        deps.UnitOfWork,
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		activity:   deps.ActivityRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// CreateTicket opens a new ticket for a requester. The ticket row, the
// initial comment and the ticket_created activity entry commit together.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Kind != domain.ActorRequester {
		return nil, apperrors.NewForbidden("only requesters open tickets")
	}
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		RequesterID: actor.ID,
		CategoryID:  input.CategoryID,
		Subject:     subject,
		Status:      domain.TicketStatusNew,
		Priority:    priority,
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.Tickets().Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.UserID(),
		AuthorKind: domain.ActorRequester,
		Body:       body,
	}
	if err := tx.Comments().Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Activity().Append(ctx, &domain.ActivityEntry{
		TicketID: ticket.ID,
		UserID:   actor.UserID(),
		Action:   domain.ActionTicketCreated,
		Details:  map[string]any{"number": ticket.Number, "priority": ticket.Priority},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Number:   ticket.Number,
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket, enforcing requester ownership.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err, ticketID)
	}
	switch actor.Kind {
	case domain.ActorRequester:
		if ticket.RequesterID != actor.ID {
			return nil, apperrors.NewForbidden("ticket belongs to another requester")
		}
	case domain.ActorAgent, domain.ActorAdmin, domain.ActorSystem:
	}
	return ticket, nil
}

// GetTicketThread fetches a ticket with its full comment thread.
// Requesters see public comments only; staff see everything.
func (s *TicketService) GetTicketThread(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if !actor.IsStaff() {
		visible := comments[:0]
		for _, comment := range comments {
			if !comment.IsInternal {
				visible = append(visible, comment)
			}
		}
		comments = visible
	}
	return ticket, comments, nil
}

// CreateComment appends a comment and applies the reply-driven
// transitions: a public staff reply forces PENDING (and stamps the
// first response), a requester reply while PENDING reopens to OPEN,
// internal notes change nothing.
func (s *TicketService) CreateComment(ctx context.Context, actor domain.Actor, ticketID, body string, isInternal bool) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	if isInternal && actor.Kind == domain.ActorRequester {
		return nil, apperrors.NewForbidden("requesters cannot post internal notes")
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err, ticketID)
	}
	if actor.Kind == domain.ActorRequester && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another requester")
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticketID})
	}

	now := s.now()
	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.UserID(),
		AuthorKind: actor.Kind,
		Body:       body,
		IsInternal: isInternal,
		IsSystem:   actor.Kind == domain.ActorSystem,
	}
	if err := tx.Comments().Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	oldStatus := ticket.Status
	changed := false
	firstStamped := false
	switch {
	case actor.IsStaff() && !isInternal:
		if ticket.FirstResponseAt == nil {
			firstResponse := now
			ticket.FirstResponseAt = &firstResponse
			firstStamped = true
		}
		if ticket.Status != domain.TicketStatusPending {
			applyStatus(ticket, domain.TicketStatusPending, now)
			changed = true
		}
	case actor.Kind == domain.ActorRequester && ticket.Status == domain.TicketStatusPending:
		applyStatus(ticket, domain.TicketStatusOpen, now)
		changed = true
	}
	if changed || firstStamped {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if changed {
		if err := tx.Activity().Append(ctx, &domain.ActivityEntry{
			TicketID: ticket.ID,
			UserID:   actor.UserID(),
			Action:   domain.ActionStatusChanged,
			Details:  map[string]any{"old_status": oldStatus, "new_status": ticket.Status},
		}); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if err := tx.Activity().Append(ctx, &domain.ActivityEntry{
		TicketID: ticket.ID,
		UserID:   actor.UserID(),
		Action:   domain.ActionCommentAdded,
		Details:  map[string]any{"comment_id": comment.ID, "is_internal": isInternal},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.IsStaff() {
		if err := tx.Sessions().IncrementActiveReplyCount(ctx, actor.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.CommentAddedPayload{
			CommentID:  comment.ID,
			AuthorID:   comment.AuthorID,
			IsInternal: isInternal,
		},
	})
	if changed {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: ticket.Status},
		})
	}
	return comment, nil
}

// UpdateTicket is the manual override path for staff: direct status,
// priority, category and assignment changes. Assignment is a claim;
// an occupied assignee slot fails with Conflict instead of being
// overwritten.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if input.Status != nil {
		if !domain.ValidStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		if *input.Status == domain.TicketStatusClosed {
			return nil, apperrors.NewValidationError("tickets close via the auto-close rule only", nil)
		}
	}
	if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
	}
	if input.AssigneeID != nil {
		assignee, err := s.users.GetByID(ctx, *input.AssigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("assignee", map[string]any{"user_id": *input.AssigneeID})
			}
			return nil, apperrors.MapError(err)
		}
		if !assignee.IsStaff() {
			return nil, apperrors.NewValidationError("assignee must be an agent", map[string]any{"user_id": assignee.ID})
		}
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err, ticketID)
	}

	now := s.now()
	type activityDraft struct {
		action  domain.ActivityAction
		details map[string]any
	}
	var drafts []activityDraft

	if input.AssigneeID != nil {
		if ticket.AssigneeID != nil {
			return nil, apperrors.NewConflict("ticket already assigned", map[string]any{
				"ticket_id":   ticketID,
				"assignee_id": *ticket.AssigneeID,
			})
		}
		claimed, err := tx.Tickets().ClaimAssignee(ctx, ticket.ID, *input.AssigneeID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !claimed {
			return nil, apperrors.NewConflict("ticket already assigned", map[string]any{"ticket_id": ticketID})
		}
		ticket.AssigneeID = input.AssigneeID
		drafts = append(drafts, activityDraft{
			action:  domain.ActionAssigneeChanged,
			details: map[string]any{"old_assignee_id": nil, "new_assignee_id": *input.AssigneeID},
		})
	}

	fieldsChanged := false
	if input.Status != nil && *input.Status != ticket.Status {
		oldStatus := ticket.Status
		applyStatus(ticket, *input.Status, now)
		fieldsChanged = true
		drafts = append(drafts, activityDraft{
			action:  domain.ActionStatusChanged,
			details: map[string]any{"old_status": oldStatus, "new_status": ticket.Status},
		})
	}
	if input.Priority != nil && *input.Priority != ticket.Priority {
		oldPriority := ticket.Priority
		ticket.Priority = *input.Priority
		fieldsChanged = true
		drafts = append(drafts, activityDraft{
			action:  domain.ActionPriorityChanged,
			details: map[string]any{"old_priority": oldPriority, "new_priority": ticket.Priority},
		})
	}
	if input.CategoryID != nil && !strPtrEqual(input.CategoryID, ticket.CategoryID) {
		oldCategory := ticket.CategoryID
		ticket.CategoryID = input.CategoryID
		fieldsChanged = true
		drafts = append(drafts, activityDraft{
			action:  domain.ActionCategoryChanged,
			details: map[string]any{"old_category_id": oldCategory, "new_category_id": *input.CategoryID},
		})
	}

	if fieldsChanged {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	for _, draft := range drafts {
		if err := tx.Activity().Append(ctx, &domain.ActivityEntry{
			TicketID: ticket.ID,
			UserID:   actor.UserID(),
			Action:   draft.action,
			Details:  draft.details,
		}); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, draft := range drafts {
		switch draft.action {
		case domain.ActionStatusChanged:
			s.publish(ctx, events.Event{
				Type:     events.EventTicketStatusChanged,
				TicketID: ticket.ID,
				Actor:    actor,
				Payload: events.TicketStatusChangedPayload{
					OldStatus: draft.details["old_status"].(domain.TicketStatus),
					NewStatus: draft.details["new_status"].(domain.TicketStatus),
				},
			})
		case domain.ActionAssigneeChanged:
			s.publish(ctx, events.Event{
				Type:     events.EventTicketAssigned,
				TicketID: ticket.ID,
				Actor:    actor,
				Payload:  events.TicketAssignedPayload{AssigneeID: *ticket.AssigneeID},
			})
		}
	}
	return ticket, nil
}

// ListActivity returns the ordered audit trail for a ticket.
func (s *TicketService) ListActivity(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.ActivityEntry, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapTicketErr(err, ticketID)
	}
	entries, err := s.activity.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// AddTimeEntry records tracked work on a ticket for the acting agent.
func (s *TicketService) AddTimeEntry(ctx context.Context, actor domain.Actor, ticketID string, duration time.Duration) (*domain.TimeEntry, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if duration < 0 {
		return nil, apperrors.NewValidationError("duration must not be negative", map[string]any{"duration": duration.String()})
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapTicketErr(err, ticketID)
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	entry := &domain.TimeEntry{
		TicketID: ticketID,
		AgentID:  actor.ID,
		Duration: duration,
	}
	if err := tx.TimeEntries().Create(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

// applyStatus moves the ticket to newStatus and keeps solvedAt in step:
// entering SOLVED stamps it, leaving for CLOSED keeps it, any other
// destination clears it.
func applyStatus(ticket *domain.Ticket, newStatus domain.TicketStatus, now time.Time) {
	ticket.Status = newStatus
	switch newStatus {
	case domain.TicketStatusSolved:
		solvedAt := now
		ticket.SolvedAt = &solvedAt
	case domain.TicketStatusClosed:
	default:
		ticket.SolvedAt = nil
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapTicketErr(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
