package dto

import "time"

// ContributionResponse is one agent's credit split on a ticket.
type ContributionResponse struct {
	AgentID             string `json:"agent_id"`
	TimeSpentSeconds    int64  `json:"time_spent_seconds"`
	ReplyCount          int    `json:"reply_count"`
	ContributionPercent int    `json:"contribution_percent"`
}

// AssignmentPerformanceResponse is the assignment-based view of one agent.
type AssignmentPerformanceResponse struct {
	AgentID                   string     `json:"agent_id"`
	AssignedTickets           int        `json:"assigned_tickets"`
	SolvedTickets             int        `json:"solved_tickets"`
	SolveRate                 float64    `json:"solve_rate"`
	SessionCount              int        `json:"session_count"`
	AvgSessionDurationSeconds int64      `json:"avg_session_duration_seconds"`
	LastLoginAt               *time.Time `json:"last_login_at,omitempty"`
	Online                    bool       `json:"online"`
	TotalReplies              int        `json:"total_replies"`
}

// ContributionPerformanceResponse is the recorded-work view of one agent.
type ContributionPerformanceResponse struct {
	AgentID                 string  `json:"agent_id"`
	TicketCount             int     `json:"ticket_count"`
	SolvedTickets           int     `json:"solved_tickets"`
	SolveRate               float64 `json:"solve_rate"`
	TotalTimeSpentSeconds   int64   `json:"total_time_spent_seconds"`
	TotalReplies            int     `json:"total_replies"`
	AvgTimePerTicketSeconds int64   `json:"avg_time_per_ticket_seconds"`
}

// PerformanceReportResponse bundles both views.
type PerformanceReportResponse struct {
	Assignment   []AssignmentPerformanceResponse   `json:"assignment"`
	Contribution []ContributionPerformanceResponse `json:"contribution"`
	GeneratedAt  time.Time                         `json:"generated_at"`
}
