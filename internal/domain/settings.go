package domain

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// AutomationSettings is the singleton configuration for the time-based
// rules. Each rule toggles independently and carries its own threshold.
type AutomationSettings struct {
	PendingReminderEnabled     bool
	PendingReminderHours       int
	AutoSolveEnabled           bool
	AutoSolveHours             int
	AutoCloseEnabled           bool
	AutoCloseHours             int
	AttachmentRetentionEnabled bool
	AttachmentRetentionDays    int
	UpdatedAt                  time.Time
}

// Validate rejects thresholds below one.
func (s AutomationSettings) Validate() error {
	thresholds := map[string]int{
		"pendingReminderHours":    s.PendingReminderHours,
		"autoSolveHours":          s.AutoSolveHours,
		"autoCloseHours":          s.AutoCloseHours,
		"attachmentRetentionDays": s.AttachmentRetentionDays,
	}
	for name, value := range thresholds {
		if value < 1 {
			return errorutil.NewValidationError(
				fmt.Sprintf("%s must be at least 1", name),
				map[string]any{"field": name, "value": value},
			)
		}
	}
	return nil
}
