package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew     TicketStatus = "NEW"
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusPending TicketStatus = "PENDING"
	TicketStatusOnHold  TicketStatus = "ON_HOLD"
	TicketStatusSolved  TicketStatus = "SOLVED"
	TicketStatusClosed  TicketStatus = "CLOSED"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusPending,
		TicketStatusOnHold, TicketStatusSolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// SolvedAt is non-nil exactly while the ticket sits in SOLVED or CLOSED;
// reopening to any earlier state clears it. FirstResponseAt is written once,
// by the first public staff reply, and never overwritten. Number is the
// sequential human-facing identifier.
type Ticket struct {
	ID              string
	Number          int64
	RequesterID     string
	AssigneeID      *string
	CategoryID      *string
	Subject         string
	Status          TicketStatus
	Priority        TicketPriority
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FirstResponseAt *time.Time
	SolvedAt        *time.Time
}
