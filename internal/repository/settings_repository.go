package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// SettingsRepository stores the automation settings singleton.
type SettingsRepository interface {
	// Get returns (nil, nil) when the row has not been seeded yet.
	Get(ctx context.Context) (*domain.AutomationSettings, error)
	Upsert(ctx context.Context, settings *domain.AutomationSettings) error
}

type settingsRepository struct {
	q Querier
}

// NewSettingsRepository builds repository.
func NewSettingsRepository(q Querier) SettingsRepository {
	return &settingsRepository{q: q}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.AutomationSettings, error) {
	const query = `
        SELECT pending_reminder_enabled, pending_reminder_hours,
               auto_solve_enabled, auto_solve_hours,
               auto_close_enabled, auto_close_hours,
               attachment_retention_enabled, attachment_retention_days,
               updated_at
        FROM automation_settings WHERE id=1`
	var settings domain.AutomationSettings
	err := r.q.QueryRow(ctx, query).Scan(
		&settings.PendingReminderEnabled,
		&settings.PendingReminderHours,
		&settings.AutoSolveEnabled,
		&settings.AutoSolveHours,
		&settings.AutoCloseEnabled,
		&settings.AutoCloseHours,
		&settings.AttachmentRetentionEnabled,
		&settings.AttachmentRetentionDays,
		&settings.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.AutomationSettings) error {
	const query = `
        INSERT INTO automation_settings (
            id, pending_reminder_enabled, pending_reminder_hours,
            auto_solve_enabled, auto_solve_hours,
            auto_close_enabled, auto_close_hours,
            attachment_retention_enabled, attachment_retention_days, updated_at
        ) VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,NOW())
        ON CONFLICT (id) DO UPDATE SET
            pending_reminder_enabled=EXCLUDED.pending_reminder_enabled,
            pending_reminder_hours=EXCLUDED.pending_reminder_hours,
            auto_solve_enabled=EXCLUDED.auto_solve_enabled,
            auto_solve_hours=EXCLUDED.auto_solve_hours,
            auto_close_enabled=EXCLUDED.auto_close_enabled,
            auto_close_hours=EXCLUDED.auto_close_hours,
            attachment_retention_enabled=EXCLUDED.attachment_retention_enabled,
            attachment_retention_days=EXCLUDED.attachment_retention_days,
            updated_at=NOW()
        RETURNING updated_at`
	return r.q.QueryRow(ctx, query,
		settings.PendingReminderEnabled,
		settings.PendingReminderHours,
		settings.AutoSolveEnabled,
		settings.AutoSolveHours,
		settings.AutoCloseEnabled,
		settings.AutoCloseHours,
		settings.AttachmentRetentionEnabled,
		settings.AttachmentRetentionDays,
	).Scan(&settings.UpdatedAt)
}
