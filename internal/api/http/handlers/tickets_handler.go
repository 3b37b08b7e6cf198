package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/service"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	scoring *service.ScoringService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, scoring *service.ScoringService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, scoring: scoring}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), actor, service.TicketCreateInput{
		Subject:    req.Subject,
		Body:       req.Body,
		Priority:   req.Priority,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, comments, err := h.tickets.GetTicketThread(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, comments)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.UpdateTicket(c.Context(), actor, c.Params("id"), service.TicketUpdateInput{
		Status:     req.Status,
		Priority:   req.Priority,
		AssigneeID: req.AssigneeID,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CreateComment POST /tickets/:id/comments.
func (h *TicketsHandler) CreateComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.tickets.CreateComment(c.Context(), actor, c.Params("id"), req.Body, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListActivity GET /tickets/:id/activity.
func (h *TicketsHandler) ListActivity(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.tickets.ListActivity(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ActivityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.ActivityEntryResponse{
			ID:        entry.ID,
			TicketID:  entry.TicketID,
			UserID:    entry.UserID,
			Action:    entry.Action,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
			Sequence:  entry.Sequence,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetContributions GET /tickets/:id/contributions.
func (h *TicketsHandler) GetContributions(c *fiber.Ctx) error {
	contributions, err := h.scoring.GetTicketContributions(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ContributionResponse, 0, len(contributions))
	for _, row := range contributions {
		items = append(items, dto.ContributionResponse{
			AgentID:             row.AgentID,
			TimeSpentSeconds:    int64(row.TimeSpent / time.Second),
			ReplyCount:          row.ReplyCount,
			ContributionPercent: row.ContributionPercent,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddTimeEntry POST /tickets/:id/time-entries.
func (h *TicketsHandler) AddTimeEntry(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTimeEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	entry, err := h.tickets.AddTimeEntry(c.Context(), actor, c.Params("id"), time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TimeEntryResponse{
		ID:              entry.ID,
		TicketID:        entry.TicketID,
		AgentID:         entry.AgentID,
		DurationSeconds: int64(entry.Duration / time.Second),
		CreatedAt:       entry.CreatedAt,
	}})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:              ticket.ID,
		Number:          ticket.Number,
		RequesterID:     ticket.RequesterID,
		AssigneeID:      ticket.AssigneeID,
		CategoryID:      ticket.CategoryID,
		Subject:         ticket.Subject,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		FirstResponseAt: ticket.FirstResponseAt,
		SolvedAt:        ticket.SolvedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, comments []domain.Comment) dto.TicketDetailResponse {
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		Comments:       items,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		TicketID:   comment.TicketID,
		AuthorID:   comment.AuthorID,
		AuthorKind: comment.AuthorKind,
		Body:       comment.Body,
		IsInternal: comment.IsInternal,
		IsSystem:   comment.IsSystem,
		CreatedAt:  comment.CreatedAt,
	}
}
