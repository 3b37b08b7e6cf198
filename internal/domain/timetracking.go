package domain

import "time"

// TimeEntry records work an agent put into a ticket. An agent may have
// any number of entries per ticket; scoring sums them.
type TimeEntry struct {
	ID        string
	TicketID  string
	AgentID   string
	Duration  time.Duration
	CreatedAt time.Time
}
