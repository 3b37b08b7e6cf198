package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
)

func testSettings() domain.AutomationSettings {
	return domain.AutomationSettings{
		PendingReminderEnabled:     true,
		PendingReminderHours:       48,
		AutoSolveEnabled:           true,
		AutoSolveHours:             72,
		AutoCloseEnabled:           true,
		AutoCloseHours:             240,
		AttachmentRetentionEnabled: true,
		AttachmentRetentionDays:    30,
	}
}

type automationFixture struct {
	store      *memStore
	clock      *testClock
	tickets    *TicketService
	automation *AutomationService
	dispatcher *recordingDispatcher
}

func newAutomationFixture(t *testing.T, settings domain.AutomationSettings) *automationFixture {
	t.Helper()
	clock := newTestClock(testStart)
	store := newMemStore(clock.Now)
	store.addUser("req-1", domain.UserRoleUser)
	store.addUser("agent-1", domain.UserRoleAgent)
	dispatcher := &recordingDispatcher{}

	settingsSvc := NewSettingsService(&memSettingsRepo{s: store}, settings, zap.NewNop())
	tickets := NewTicketService(TicketDependencies{
		UnitOfWork:   &memUnitOfWork{s: store},
		TicketRepo:   &memTicketRepo{s: store},
		CommentRepo:  &memCommentRepo{s: store},
		ActivityRepo: &memActivityRepo{s: store},
		UserRepo:     &memUserRepo{s: store},
		Dispatcher:   dispatcher,
		Logger:       zap.NewNop(),
		Now:          clock.Now,
	})
	automation := NewAutomationService(AutomationDependencies{
		UnitOfWork:     &memUnitOfWork{s: store},
		TicketRepo:     &memTicketRepo{s: store},
		CommentRepo:    &memCommentRepo{s: store},
		AttachmentRepo: &memAttachmentRepo{s: store},
		Settings:       settingsSvc,
		Deduper:        NewMemoryReminderDeduper(clock.Now),
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
		Now:            clock.Now,
	})
	return &automationFixture{
		store:      store,
		clock:      clock,
		tickets:    tickets,
		automation: automation,
		dispatcher: dispatcher,
	}
}

// pendingTicket builds a ticket sitting in PENDING after one public
// staff reply.
func (f *automationFixture) pendingTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, requester, TicketCreateInput{Subject: "vpn down", Body: "cannot connect"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := f.tickets.CreateComment(ctx, agent, ticket.ID, "restart the client", false); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	return ticket
}

func TestSweepAutoSolve(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())
	ticket := f.pendingTicket(t)

	// Under the threshold: nothing happens.
	f.clock.Advance(71 * time.Hour)
	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoSolved != 0 {
		t.Errorf("autoSolved = %d before threshold, want 0", report.AutoSolved)
	}

	f.clock.Advance(2 * time.Hour)
	report, err = f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoSolved != 1 {
		t.Fatalf("autoSolved = %d, want 1", report.AutoSolved)
	}
	got := f.store.tickets[ticket.ID]
	if got.Status != domain.TicketStatusSolved {
		t.Errorf("status = %s, want SOLVED", got.Status)
	}
	if got.SolvedAt == nil {
		t.Error("solvedAt not stamped")
	}

	// Re-running must not touch the ticket again.
	activityBefore := len(f.store.ticketActivity(ticket.ID))
	report, err = f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("second RunSweep: %v", err)
	}
	if report.AutoSolved != 0 {
		t.Errorf("second sweep autoSolved = %d, want 0", report.AutoSolved)
	}
	if after := len(f.store.ticketActivity(ticket.ID)); after != activityBefore {
		t.Errorf("second sweep appended %d activity entries", after-activityBefore)
	}
}

func TestSweepAutoSolveHeldBackByRequesterReply(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())
	ticket := f.pendingTicket(t)

	// A requester reply after the staff reply reopens the ticket; even
	// if it were still PENDING, the rule must not fire.
	f.clock.Advance(80 * time.Hour)
	if _, err := f.tickets.CreateComment(ctx, requester, ticket.ID, "still broken", false); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoSolved != 0 {
		t.Errorf("autoSolved = %d, want 0", report.AutoSolved)
	}
	if got := f.store.tickets[ticket.ID]; got.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want OPEN", got.Status)
	}
}

func TestSweepSkipsPendingWithoutStaffReply(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())

	ticket, err := f.tickets.CreateTicket(ctx, requester, TicketCreateInput{Subject: "odd state", Body: "imported"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	// A ticket can land in PENDING without a public staff reply (e.g.
	// imported data); both pending rules must leave it alone.
	f.store.tickets[ticket.ID].Status = domain.TicketStatusPending

	f.clock.Advance(100 * time.Hour)
	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoSolved != 0 || report.Reminded != 0 {
		t.Errorf("report = %+v, want no pending actions", report)
	}
}

func TestSweepReminderOncePerEpisode(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())
	ticket := f.pendingTicket(t)

	// Past the reminder threshold but under auto-solve.
	f.clock.Advance(49 * time.Hour)
	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.Reminded != 1 {
		t.Fatalf("reminded = %d, want 1", report.Reminded)
	}

	// Same episode: no second reminder.
	f.clock.Advance(time.Hour)
	report, err = f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("second RunSweep: %v", err)
	}
	if report.Reminded != 0 {
		t.Errorf("second sweep reminded = %d, want 0", report.Reminded)
	}

	// A new staff reply starts a new episode: requester pulls it back to
	// OPEN first, staff replies again, threshold passes again.
	if _, err := f.tickets.CreateComment(ctx, requester, ticket.ID, "no luck", false); err != nil {
		t.Fatalf("requester CreateComment: %v", err)
	}
	if _, err := f.tickets.CreateComment(ctx, agent, ticket.ID, "try again", false); err != nil {
		t.Fatalf("agent CreateComment: %v", err)
	}
	f.clock.Advance(49 * time.Hour)
	report, err = f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("third RunSweep: %v", err)
	}
	if report.Reminded != 1 {
		t.Errorf("new episode reminded = %d, want 1", report.Reminded)
	}

	reminders := f.dispatcher.byType(events.EventPendingReminder)
	if len(reminders) != 2 {
		t.Errorf("pending_reminder events = %d, want 2", len(reminders))
	}
	for _, event := range reminders {
		if event.Actor.Kind != domain.ActorSystem {
			t.Errorf("reminder actor = %s, want SYSTEM", event.Actor.Kind)
		}
	}
}

func TestSweepAutoClose(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())
	ticket := f.pendingTicket(t)

	f.clock.Advance(73 * time.Hour)
	if _, err := f.automation.RunSweep(ctx); err != nil {
		t.Fatalf("solve sweep: %v", err)
	}
	solvedAt := f.store.tickets[ticket.ID].SolvedAt
	if solvedAt == nil {
		t.Fatal("precondition: ticket not solved")
	}

	// Under the close threshold.
	f.clock.Advance(239 * time.Hour)
	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoClosed != 0 {
		t.Errorf("autoClosed = %d before threshold, want 0", report.AutoClosed)
	}

	f.clock.Advance(2 * time.Hour)
	report, err = f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoClosed != 1 {
		t.Fatalf("autoClosed = %d, want 1", report.AutoClosed)
	}
	got := f.store.tickets[ticket.ID]
	if got.Status != domain.TicketStatusClosed {
		t.Errorf("status = %s, want CLOSED", got.Status)
	}
	if got.SolvedAt == nil || !got.SolvedAt.Equal(*solvedAt) {
		t.Errorf("solvedAt changed on close: %v vs %v", got.SolvedAt, solvedAt)
	}
}

func TestSweepDisabledRulesDoNothing(t *testing.T) {
	ctx := context.Background()
	settings := testSettings()
	settings.PendingReminderEnabled = false
	settings.AutoSolveEnabled = false
	settings.AutoCloseEnabled = false
	settings.AttachmentRetentionEnabled = false
	f := newAutomationFixture(t, settings)
	ticket := f.pendingTicket(t)

	f.clock.Advance(1000 * time.Hour)
	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.Reminded+report.AutoSolved+report.AutoClosed+report.AttachmentsDeleted != 0 {
		t.Errorf("report = %+v, want all zero", report)
	}
	if got := f.store.tickets[ticket.ID]; got.Status != domain.TicketStatusPending {
		t.Errorf("status = %s, want PENDING", got.Status)
	}
}

func TestSweepFailureIsolation(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())
	broken := f.pendingTicket(t)
	healthy := f.pendingTicket(t)
	f.store.replyTimesErr[broken.ID] = errors.New("connection reset")

	f.clock.Advance(73 * time.Hour)
	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoSolved != 1 {
		t.Errorf("autoSolved = %d, want 1", report.AutoSolved)
	}
	if len(report.Failures) != 1 || report.Failures[0].TicketID != broken.ID {
		t.Fatalf("failures = %+v, want one for %s", report.Failures, broken.ID)
	}
	if got := f.store.tickets[healthy.ID]; got.Status != domain.TicketStatusSolved {
		t.Errorf("healthy ticket status = %s, want SOLVED", got.Status)
	}
}

func TestSweepSkipsLostRace(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())
	ticket := f.pendingTicket(t)

	// Another writer moves the ticket between the list and the update;
	// the conditional write loses and the sweep records nothing.
	f.clock.Advance(73 * time.Hour)
	f.store.updateIfDeny[ticket.ID] = true
	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AutoSolved != 0 || len(report.Failures) != 0 {
		t.Errorf("report = %+v, want no actions and no failures", report)
	}
}

func TestSweepAttachmentRetention(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())

	attachments := &memAttachmentRepo{s: f.store}
	old := &domain.AttachmentReference{StorageKey: "blob/old", CreatedAt: testStart.AddDate(0, 0, -45)}
	fresh := &domain.AttachmentReference{StorageKey: "blob/fresh", CreatedAt: testStart.AddDate(0, 0, -2)}
	for _, a := range []*domain.AttachmentReference{old, fresh} {
		if err := attachments.Create(ctx, a); err != nil {
			t.Fatalf("Create attachment: %v", err)
		}
	}

	report, err := f.automation.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if report.AttachmentsDeleted != 1 {
		t.Fatalf("attachmentsDeleted = %d, want 1", report.AttachmentsDeleted)
	}
	if len(f.store.attachments) != 1 || f.store.attachments[0].StorageKey != "blob/fresh" {
		t.Errorf("remaining attachments = %+v, want only blob/fresh", f.store.attachments)
	}

	purged := f.dispatcher.byType(events.EventAttachmentsPurged)
	if len(purged) != 1 {
		t.Fatalf("attachments_purged events = %d, want 1", len(purged))
	}
	payload, ok := purged[0].Payload.(events.AttachmentsPurgedPayload)
	if !ok || len(payload.StorageKeys) != 1 || payload.StorageKeys[0] != "blob/old" {
		t.Errorf("payload = %+v, want [blob/old]", purged[0].Payload)
	}
}

func TestSweepSeedsDefaultSettings(t *testing.T) {
	ctx := context.Background()
	f := newAutomationFixture(t, testSettings())

	if f.store.settings != nil {
		t.Fatal("precondition: settings already seeded")
	}
	if _, err := f.automation.RunSweep(ctx); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if f.store.settings == nil {
		t.Fatal("sweep did not seed settings")
	}
	if f.store.settings.AutoSolveHours != 72 {
		t.Errorf("seeded autoSolveHours = %d, want 72", f.store.settings.AutoSolveHours)
	}
}
