package dto

import "time"

// SessionResponse describes one agent session span.
type SessionResponse struct {
	ID              string     `json:"id"`
	AgentID         string     `json:"agent_id"`
	LoginAt         time.Time  `json:"login_at"`
	LogoutAt        *time.Time `json:"logout_at"`
	DurationSeconds *int64     `json:"duration_seconds"`
	ReplyCount      int        `json:"reply_count"`
	Active          bool       `json:"active"`
}

// SessionCleanupResponse reports a cleanup run.
type SessionCleanupResponse struct {
	Closed int `json:"closed"`
}
