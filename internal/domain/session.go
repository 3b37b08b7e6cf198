package domain

import "time"

// AgentSession is a login/logout span for a staff member. At most one
// session per agent has a nil LogoutAt at any time; Duration is fixed
// when the session closes.
type AgentSession struct {
	ID         string
	AgentID    string
	LoginAt    time.Time
	LogoutAt   *time.Time
	Duration   *time.Duration
	ReplyCount int
}

// Active reports whether the session is still open.
func (s AgentSession) Active() bool {
	return s.LogoutAt == nil
}
