package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/service"
)

// ReportsHandler exposes the agent performance views.
type ReportsHandler struct {
	scoring *service.ScoringService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(scoring *service.ScoringService) *ReportsHandler {
	return &ReportsHandler{scoring: scoring}
}

// AssignmentPerformance GET /reports/performance/assignment.
func (h *ReportsHandler) AssignmentPerformance(c *fiber.Ctx) error {
	rows, err := h.scoring.GetAssignmentPerformance(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponses(rows)})
}

// ContributionPerformance GET /reports/performance/contribution.
func (h *ReportsHandler) ContributionPerformance(c *fiber.Ctx) error {
	rows, err := h.scoring.GetContributionPerformance(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contributionResponses(rows)})
}

// PerformanceReport GET /reports/performance.
func (h *ReportsHandler) PerformanceReport(c *fiber.Ctx) error {
	report, err := h.scoring.GetPerformanceReport(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PerformanceReportResponse{
		Assignment:   assignmentResponses(report.Assignment),
		Contribution: contributionResponses(report.Contribution),
		GeneratedAt:  report.GeneratedAt,
	}})
}

func assignmentResponses(rows []service.AssignmentPerformance) []dto.AssignmentPerformanceResponse {
	items := make([]dto.AssignmentPerformanceResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.AssignmentPerformanceResponse{
			AgentID:                   row.AgentID,
			AssignedTickets:           row.AssignedTickets,
			SolvedTickets:             row.SolvedTickets,
			SolveRate:                 row.SolveRate,
			SessionCount:              row.SessionCount,
			AvgSessionDurationSeconds: int64(row.AvgSessionDuration / time.Second),
			LastLoginAt:               row.LastLoginAt,
			Online:                    row.Online,
			TotalReplies:              row.TotalReplies,
		})
	}
	return items
}

func contributionResponses(rows []service.ContributionPerformance) []dto.ContributionPerformanceResponse {
	items := make([]dto.ContributionPerformanceResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.ContributionPerformanceResponse{
			AgentID:                 row.AgentID,
			TicketCount:             row.TicketCount,
			SolvedTickets:           row.SolvedTickets,
			SolveRate:               row.SolveRate,
			TotalTimeSpentSeconds:   int64(row.TotalTimeSpent / time.Second),
			TotalReplies:            row.TotalReplies,
			AvgTimePerTicketSeconds: int64(row.AvgTimePerTicket / time.Second),
		})
	}
	return items
}
