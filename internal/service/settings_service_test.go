package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

func TestSettingsGetSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(newTestClock(testStart).Now)
	svc := NewSettingsService(&memSettingsRepo{s: store}, testSettings(), zap.NewNop())

	got, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PendingReminderHours != 48 || got.AutoCloseHours != 240 {
		t.Errorf("seeded settings = %+v", got)
	}
	if store.settings == nil {
		t.Fatal("settings row not persisted")
	}

	// Second read returns the stored row, not the defaults.
	store.settings.AutoSolveHours = 96
	got, err = svc.Get(ctx)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if got.AutoSolveHours != 96 {
		t.Errorf("autoSolveHours = %d, want stored 96", got.AutoSolveHours)
	}
}

func TestSettingsUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(newTestClock(testStart).Now)
	svc := NewSettingsService(&memSettingsRepo{s: store}, testSettings(), zap.NewNop())

	if _, err := svc.Update(ctx, agent, testSettings()); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Errorf("agent update: err = %v, want FORBIDDEN", err)
	}

	bad := testSettings()
	bad.AutoCloseHours = 0
	if _, err := svc.Update(ctx, admin, bad); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Errorf("zero threshold: err = %v, want VALIDATION_FAILED", err)
	}

	next := testSettings()
	next.PendingReminderHours = 24
	next.AutoCloseEnabled = false
	updated, err := svc.Update(ctx, admin, next)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PendingReminderHours != 24 || updated.AutoCloseEnabled {
		t.Errorf("updated = %+v", updated)
	}
	if updated.UpdatedAt.IsZero() {
		t.Error("updatedAt not stamped")
	}
	if store.settings.PendingReminderHours != 24 {
		t.Errorf("stored reminder hours = %d, want 24", store.settings.PendingReminderHours)
	}
}

func TestSettingsValidateThresholds(t *testing.T) {
	fields := []func(*domain.AutomationSettings){
		func(s *domain.AutomationSettings) { s.PendingReminderHours = 0 },
		func(s *domain.AutomationSettings) { s.AutoSolveHours = -1 },
		func(s *domain.AutomationSettings) { s.AutoCloseHours = 0 },
		func(s *domain.AutomationSettings) { s.AttachmentRetentionDays = 0 },
	}
	for i, mutate := range fields {
		settings := testSettings()
		mutate(&settings)
		if err := settings.Validate(); !apperrors.IsCode(err, "VALIDATION_FAILED") {
			t.Errorf("case %d: err = %v, want VALIDATION_FAILED", i, err)
		}
	}
	valid := testSettings()
	if err := valid.Validate(); err != nil {
		t.Errorf("valid settings rejected: %v", err)
	}
}
