package domain

import "time"

// Comment captures a message in a ticket thread. Comments are immutable
// once created. Internal comments are visible to staff only; system
// comments are machine-authored (imports, automation notes).
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   *string
	AuthorKind ActorKind
	Body       string
	IsInternal bool
	IsSystem   bool
	CreatedAt  time.Time
}
