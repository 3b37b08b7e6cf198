package domain

import "time"

// ActivityAction captures what happened in an activity entry.
type ActivityAction string

const (
	ActionTicketCreated   ActivityAction = "ticket_created"
	ActionStatusChanged   ActivityAction = "status_changed"
	ActionPriorityChanged ActivityAction = "priority_changed"
	ActionAssigneeChanged ActivityAction = "assignee_changed"
	ActionCategoryChanged ActivityAction = "category_changed"
	ActionCommentAdded    ActivityAction = "comment_added"
)

// ActivityEntry is an immutable audit record of a state-affecting event.
// Entries are append-only and totally ordered per ticket by
// (CreatedAt, Sequence); Sequence breaks same-timestamp ties.
// UserID is nil for system/automation actors.
type ActivityEntry struct {
	ID        string
	TicketID  string
	UserID    *string
	Action    ActivityAction
	Details   map[string]any
	CreatedAt time.Time
	Sequence  int64
}
