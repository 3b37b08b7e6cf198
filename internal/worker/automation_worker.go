package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/service"
)

// AutomationWorker runs the recurring sweep and the stale-session
// cleanup on a cron schedule.
type AutomationWorker struct {
	cron       *cron.Cron
	automation *service.AutomationService
	sessions   *service.SessionService
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAutomationWorker constructs the worker.
func NewAutomationWorker(automation *service.AutomationService, sessions *service.SessionService, metrics *observability.Metrics, logger *zap.Logger) *AutomationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationWorker{
		cron:       cron.New(),
		automation: automation,
		sessions:   sessions,
		metrics:    metrics,
		logger:     logger,
	}
}

// Start schedules the sweep. The spec uses cron syntax, e.g. "@every 5m".
func (w *AutomationWorker) Start(sweepSpec string) error {
	if _, err := w.cron.AddFunc(sweepSpec, w.runOnce); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("automation worker started", zap.String("spec", sweepSpec))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (w *AutomationWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("automation worker stopped")
}

func (w *AutomationWorker) runOnce() {
	ctx := context.Background()
	start := time.Now()

	report, err := w.automation.RunSweep(ctx)
	if err != nil {
		w.logger.Error("automation sweep failed", zap.Error(err))
		return
	}
	if w.metrics != nil {
		w.metrics.RecordSweep(report.Reminded, report.AutoSolved, report.AutoClosed,
			report.AttachmentsDeleted, len(report.Failures), time.Since(start).Seconds())
	}

	if _, err := w.sessions.CleanupOld(ctx); err != nil {
		w.logger.Error("session cleanup failed", zap.Error(err))
	}
}
