package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// SettingsService owns the automation settings singleton. Reads seed
// the row from deployment defaults on first touch; updates are admin
// actions.
type SettingsService struct {
	settings repository.SettingsRepository
	defaults domain.AutomationSettings
	logger   *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(settings repository.SettingsRepository, defaults domain.AutomationSettings, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{settings: settings, defaults: defaults, logger: logger}
}

// Get returns the current settings, seeding the row if absent.
func (s *SettingsService) Get(ctx context.Context) (*domain.AutomationSettings, error) {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if current != nil {
		return current, nil
	}

	seeded := s.defaults
	if err := seeded.Validate(); err != nil {
		return nil, err
	}
	if err := s.settings.Upsert(ctx, &seeded); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("seeded automation settings from defaults")
	return &seeded, nil
}

// Update replaces the settings. Thresholds below one are rejected.
func (s *SettingsService) Update(ctx context.Context, actor domain.Actor, settings domain.AutomationSettings) (*domain.AutomationSettings, error) {
	if actor.Kind != domain.ActorAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.settings.Upsert(ctx, &settings); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &settings, nil
}
