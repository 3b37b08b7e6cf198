package dto

import "time"

// AutomationSettingsRequest payload for PUT /automation/settings.
type AutomationSettingsRequest struct {
	PendingReminderEnabled     bool `json:"pending_reminder_enabled"`
	PendingReminderHours       int  `json:"pending_reminder_hours"`
	AutoSolveEnabled           bool `json:"auto_solve_enabled"`
	AutoSolveHours             int  `json:"auto_solve_hours"`
	AutoCloseEnabled           bool `json:"auto_close_enabled"`
	AutoCloseHours             int  `json:"auto_close_hours"`
	AttachmentRetentionEnabled bool `json:"attachment_retention_enabled"`
	AttachmentRetentionDays    int  `json:"attachment_retention_days"`
}

// AutomationSettingsResponse mirrors the stored singleton.
type AutomationSettingsResponse struct {
	AutomationSettingsRequest
	UpdatedAt time.Time `json:"updated_at"`
}

// SweepFailureResponse describes one ticket the sweep skipped.
type SweepFailureResponse struct {
	TicketID string `json:"ticket_id,omitempty"`
	Rule     string `json:"rule"`
	Reason   string `json:"reason"`
}

// SweepReportResponse summarizes a sweep run.
type SweepReportResponse struct {
	Reminded           int                    `json:"reminded"`
	AutoSolved         int                    `json:"auto_solved"`
	AutoClosed         int                    `json:"auto_closed"`
	AttachmentsDeleted int                    `json:"attachments_deleted"`
	Failures           []SweepFailureResponse `json:"failures"`
}
