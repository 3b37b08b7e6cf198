package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Sessions       *handlers.SessionsHandler
	Automation     *handlers.AutomationHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", auth.RequireStaff(), cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/comments", cfg.Tickets.CreateComment)
	tickets.Get("/:id/activity", auth.RequireStaff(), cfg.Tickets.ListActivity)
	tickets.Get("/:id/contributions", auth.RequireStaff(), cfg.Tickets.GetContributions)
	tickets.Post("/:id/time-entries", auth.RequireStaff(), cfg.Tickets.AddTimeEntry)

	sessions := app.Group("/sessions", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	sessions.Post("", cfg.Sessions.StartSession)
	sessions.Delete("/:id", cfg.Sessions.EndSession)
	sessions.Post("/cleanup", auth.RequireAdmin(), cfg.Sessions.Cleanup)

	automation := app.Group("/automation", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	automation.Post("/sweep", auth.RequireAdmin(), cfg.Automation.RunSweep)
	automation.Get("/settings", cfg.Automation.GetSettings)
	automation.Put("/settings", auth.RequireAdmin(), cfg.Automation.UpdateSettings)

	reports := app.Group("/reports", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	reports.Get("/performance", cfg.Reports.PerformanceReport)
	reports.Get("/performance/assignment", cfg.Reports.AssignmentPerformance)
	reports.Get("/performance/contribution", cfg.Reports.ContributionPerformance)
}
