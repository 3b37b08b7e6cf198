package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/service"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// AutomationHandler exposes the sweep trigger and settings endpoints.
type AutomationHandler struct {
	automation *service.AutomationService
	settings   *service.SettingsService
}

// NewAutomationHandler constructs handler.
func NewAutomationHandler(automation *service.AutomationService, settings *service.SettingsService) *AutomationHandler {
	return &AutomationHandler{automation: automation, settings: settings}
}

// RunSweep POST /automation/sweep.
func (h *AutomationHandler) RunSweep(c *fiber.Ctx) error {
	report, err := h.automation.RunSweep(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sweepReportResponse(report)})
}

// GetSettings GET /automation/settings.
func (h *AutomationHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(settings)})
}

// UpdateSettings PUT /automation/settings.
func (h *AutomationHandler) UpdateSettings(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AutomationSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.settings.Update(c.Context(), actor, domain.AutomationSettings{
		PendingReminderEnabled:     req.PendingReminderEnabled,
		PendingReminderHours:       req.PendingReminderHours,
		AutoSolveEnabled:           req.AutoSolveEnabled,
		AutoSolveHours:             req.AutoSolveHours,
		AutoCloseEnabled:           req.AutoCloseEnabled,
		AutoCloseHours:             req.AutoCloseHours,
		AttachmentRetentionEnabled: req.AttachmentRetentionEnabled,
		AttachmentRetentionDays:    req.AttachmentRetentionDays,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(updated)})
}

func settingsResponse(settings *domain.AutomationSettings) dto.AutomationSettingsResponse {
	return dto.AutomationSettingsResponse{
		AutomationSettingsRequest: dto.AutomationSettingsRequest{
			PendingReminderEnabled:     settings.PendingReminderEnabled,
			PendingReminderHours:       settings.PendingReminderHours,
			AutoSolveEnabled:           settings.AutoSolveEnabled,
			AutoSolveHours:             settings.AutoSolveHours,
			AutoCloseEnabled:           settings.AutoCloseEnabled,
			AutoCloseHours:             settings.AutoCloseHours,
			AttachmentRetentionEnabled: settings.AttachmentRetentionEnabled,
			AttachmentRetentionDays:    settings.AttachmentRetentionDays,
		},
		UpdatedAt: settings.UpdatedAt,
	}
}

func sweepReportResponse(report *service.SweepReport) dto.SweepReportResponse {
	failures := make([]dto.SweepFailureResponse, 0, len(report.Failures))
	for _, failure := range report.Failures {
		failures = append(failures, dto.SweepFailureResponse{
			TicketID: failure.TicketID,
			Rule:     failure.Rule,
			Reason:   failure.Reason,
		})
	}
	return dto.SweepReportResponse{
		Reminded:           report.Reminded,
		AutoSolved:         report.AutoSolved,
		AutoClosed:         report.AutoClosed,
		AttachmentsDeleted: report.AttachmentsDeleted,
		Failures:           failures,
	}
}
