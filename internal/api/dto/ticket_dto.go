package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject    string                `json:"subject"`
	Body       string                `json:"body"`
	Priority   domain.TicketPriority `json:"priority"`
	CategoryID *string               `json:"category_id"`
}

// UpdateTicketRequest payload; nil fields are left untouched.
type UpdateTicketRequest struct {
	Status     *domain.TicketStatus   `json:"status"`
	Priority   *domain.TicketPriority `json:"priority"`
	AssigneeID *string                `json:"assignee_id"`
	CategoryID *string                `json:"category_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body       string `json:"body"`
	IsInternal bool   `json:"is_internal"`
}

// CreateTimeEntryRequest payload. Duration is in seconds.
type CreateTimeEntryRequest struct {
	DurationSeconds int64 `json:"duration_seconds"`
}

// TicketResponse describes one ticket.
type TicketResponse struct {
	ID              string                `json:"id"`
	Number          int64                 `json:"number"`
	RequesterID     string                `json:"requester_id"`
	AssigneeID      *string               `json:"assignee_id"`
	CategoryID      *string               `json:"category_id"`
	Subject         string                `json:"subject"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	FirstResponseAt *time.Time            `json:"first_response_at"`
	SolvedAt        *time.Time            `json:"solved_at"`
}

// TicketDetailResponse is a ticket with its comment thread.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID         string           `json:"id"`
	TicketID   string           `json:"ticket_id"`
	AuthorID   *string          `json:"author_id"`
	AuthorKind domain.ActorKind `json:"author_kind"`
	Body       string           `json:"body"`
	IsInternal bool             `json:"is_internal"`
	IsSystem   bool             `json:"is_system"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ActivityEntryResponse represents one audit record.
type ActivityEntryResponse struct {
	ID        string                `json:"id"`
	TicketID  string                `json:"ticket_id"`
	UserID    *string               `json:"user_id"`
	Action    domain.ActivityAction `json:"action"`
	Details   map[string]any        `json:"details"`
	CreatedAt time.Time             `json:"created_at"`
	Sequence  int64                 `json:"sequence"`
}

// TimeEntryResponse represents one ledger row.
type TimeEntryResponse struct {
	ID              string    `json:"id"`
	TicketID        string    `json:"ticket_id"`
	AgentID         string    `json:"agent_id"`
	DurationSeconds int64     `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}
