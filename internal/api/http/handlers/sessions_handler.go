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

// SessionsHandler manages agent session endpoints.
type SessionsHandler struct {
	sessions *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessions *service.SessionService) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// StartSession POST /sessions.
func (h *SessionsHandler) StartSession(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	session, err := h.sessions.Start(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(session)})
}

// EndSession DELETE /sessions/:id.
func (h *SessionsHandler) EndSession(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	session, err := h.sessions.End(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// Cleanup POST /sessions/cleanup.
func (h *SessionsHandler) Cleanup(c *fiber.Ctx) error {
	closed, err := h.sessions.CleanupOld(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SessionCleanupResponse{Closed: closed}})
}

func sessionResponse(session *domain.AgentSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:         session.ID,
		AgentID:    session.AgentID,
		LoginAt:    session.LoginAt,
		LogoutAt:   session.LogoutAt,
		ReplyCount: session.ReplyCount,
		Active:     session.Active(),
	}
	if session.Duration != nil {
		seconds := int64(*session.Duration / time.Second)
		resp.DurationSeconds = &seconds
	}
	return resp
}
