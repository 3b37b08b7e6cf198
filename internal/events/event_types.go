package events

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventCommentAdded        EventType = "comment_added"
	EventPendingReminder     EventType = "pending_reminder"
	EventAttachmentsPurged   EventType = "attachments_purged"
)

// Event represents a domain event emitted by services. Delivery to
// requesters and agents is an external concern; the core only emits.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id,omitempty"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number   int64                 `json:"number"`
	Subject  string                `json:"subject"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID  string  `json:"comment_id"`
	AuthorID   *string `json:"author_id,omitempty"`
	IsInternal bool    `json:"is_internal"`
}

// PendingReminderPayload payload.
type PendingReminderPayload struct {
	PendingSince time.Time `json:"pending_since"`
}

// AttachmentsPurgedPayload carries the storage keys the external blob
// store should delete.
type AttachmentsPurgedPayload struct {
	StorageKeys []string `json:"storage_keys"`
}
