package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// memStore is the shared in-memory backing for the fake repositories.
// Commit and Rollback are no-ops; tests exercise service logic, not
// transaction isolation.
type memStore struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int
	seq    int64
	number int64

	tickets     map[string]*domain.Ticket
	comments    []*domain.Comment
	activity    []*domain.ActivityEntry
	sessions    map[string]*domain.AgentSession
	timeEntries []*domain.TimeEntry
	attachments []*domain.AttachmentReference
	users       map[string]*domain.User
	settings    *domain.AutomationSettings

	replyTimesErr map[string]error
	updateIfErr   map[string]error
	updateIfDeny  map[string]bool
}

func newMemStore(now func() time.Time) *memStore {
	if now == nil {
		now = time.Now
	}
	return &memStore{
		now:           now,
		tickets:       make(map[string]*domain.Ticket),
		sessions:      make(map[string]*domain.AgentSession),
		users:         make(map[string]*domain.User),
		replyTimesErr: make(map[string]error),
		updateIfErr:   make(map[string]error),
		updateIfDeny:  make(map[string]bool),
	}
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *memStore) addUser(id string, role domain.UserRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &domain.User{ID: id, Name: id, Email: id + "@example.test", Role: role, CreatedAt: s.now()}
}

func (s *memStore) ticketActivity(ticketID string) []domain.ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.ActivityEntry
	for _, entry := range s.activity {
		if entry.TicketID == ticketID {
			result = append(result, *entry)
		}
	}
	return result
}

type memUnitOfWork struct {
	s *memStore
}

func (u *memUnitOfWork) Begin(context.Context) (repository.Tx, error) {
	return &memTx{s: u.s}, nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) Tickets() repository.TicketRepository        { return &memTicketRepo{s: t.s} }
func (t *memTx) Comments() repository.CommentRepository      { return &memCommentRepo{s: t.s} }
func (t *memTx) Activity() repository.ActivityRepository     { return &memActivityRepo{s: t.s} }
func (t *memTx) Sessions() repository.SessionRepository      { return &memSessionRepo{s: t.s} }
func (t *memTx) TimeEntries() repository.TimeEntryRepository { return &memTimeEntryRepo{s: t.s} }
func (t *memTx) Commit(context.Context) error                { return nil }
func (t *memTx) Rollback(context.Context) error              { return nil }

type memTicketRepo struct {
	s *memStore
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.number++
	ticket.ID = r.s.id("ticket")
	ticket.Number = r.s.number
	ticket.CreatedAt = r.s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.s.tickets[ticket.ID] = &stored
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memTicketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.s.now()
	stored := *ticket
	r.s.tickets[ticket.ID] = &stored
	return nil
}

func (r *memTicketRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.TicketStatus, solvedAt *time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.updateIfErr[id]; err != nil {
		return false, err
	}
	if r.s.updateIfDeny[id] {
		return false, nil
	}
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.Status != from {
		return false, nil
	}
	ticket.Status = to
	ticket.SolvedAt = solvedAt
	ticket.UpdatedAt = r.s.now()
	return true, nil
}

func (r *memTicketRepo) ClaimAssignee(_ context.Context, id, agentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.AssigneeID != nil {
		return false, nil
	}
	ticket.AssigneeID = &agentID
	ticket.UpdatedAt = r.s.now()
	return true, nil
}

func (r *memTicketRepo) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.Status == status {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (r *memTicketRepo) AssignmentStats(context.Context) ([]repository.AssignmentStat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byAgent := make(map[string]*repository.AssignmentStat)
	for _, ticket := range r.s.tickets {
		if ticket.AssigneeID == nil {
			continue
		}
		stat, ok := byAgent[*ticket.AssigneeID]
		if !ok {
			stat = &repository.AssignmentStat{AgentID: *ticket.AssigneeID}
			byAgent[*ticket.AssigneeID] = stat
		}
		stat.Assigned++
		if ticket.SolvedAt != nil {
			stat.Solved++
		}
	}
	var result []repository.AssignmentStat
	for _, stat := range byAgent {
		result = append(result, *stat)
	}
	return result, nil
}

func (r *memTicketRepo) StatusesByIDs(_ context.Context, ids []string) (map[string]domain.TicketStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make(map[string]domain.TicketStatus, len(ids))
	for _, id := range ids {
		if ticket, ok := r.s.tickets[id]; ok {
			result[id] = ticket.Status
		}
	}
	return result, nil
}

type memCommentRepo struct {
	s *memStore
}

func (r *memCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = r.s.id("comment")
	comment.CreatedAt = r.s.now()
	stored := *comment
	r.s.comments = append(r.s.comments, &stored)
	return nil
}

func (r *memCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Comment
	for _, comment := range r.s.comments {
		if comment.TicketID == ticketID {
			result = append(result, *comment)
		}
	}
	return result, nil
}

func (r *memCommentRepo) ReplyTimes(_ context.Context, ticketID string) (repository.ReplyTimes, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.replyTimesErr[ticketID]; err != nil {
		return repository.ReplyTimes{}, err
	}
	var times repository.ReplyTimes
	for _, comment := range r.s.comments {
		if comment.TicketID != ticketID {
			continue
		}
		at := comment.CreatedAt
		switch {
		case staffKind(comment.AuthorKind) && !comment.IsInternal:
			if times.LastStaffPublicReplyAt == nil || at.After(*times.LastStaffPublicReplyAt) {
				times.LastStaffPublicReplyAt = &at
			}
		case comment.AuthorKind == domain.ActorRequester:
			if times.LastRequesterReplyAt == nil || at.After(*times.LastRequesterReplyAt) {
				times.LastRequesterReplyAt = &at
			}
		}
	}
	return times, nil
}

func (r *memCommentRepo) StaffReplyCountsByTicket(_ context.Context, ticketID string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make(map[string]int)
	for _, comment := range r.s.comments {
		if comment.TicketID == ticketID && staffKind(comment.AuthorKind) && comment.AuthorID != nil {
			result[*comment.AuthorID]++
		}
	}
	return result, nil
}

func (r *memCommentRepo) StaffReplyTotals(context.Context) ([]repository.AgentTicketReplies, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type key struct{ agent, ticket string }
	counts := make(map[key]int)
	for _, comment := range r.s.comments {
		if staffKind(comment.AuthorKind) && comment.AuthorID != nil && !comment.IsSystem {
			counts[key{*comment.AuthorID, comment.TicketID}]++
		}
	}
	var result []repository.AgentTicketReplies
	for k, count := range counts {
		result = append(result, repository.AgentTicketReplies{AgentID: k.agent, TicketID: k.ticket, Replies: count})
	}
	return result, nil
}

func staffKind(kind domain.ActorKind) bool {
	return kind == domain.ActorAgent || kind == domain.ActorAdmin
}

type memActivityRepo struct {
	s *memStore
}

func (r *memActivityRepo) Append(_ context.Context, entry *domain.ActivityEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	entry.ID = r.s.id("activity")
	entry.Sequence = r.s.seq
	entry.CreatedAt = r.s.now()
	stored := *entry
	r.s.activity = append(r.s.activity, &stored)
	return nil
}

func (r *memActivityRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.ActivityEntry
	for _, entry := range r.s.activity {
		if entry.TicketID == ticketID {
			result = append(result, *entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Sequence < result[j].Sequence
	})
	return result, nil
}

type memSessionRepo struct {
	s *memStore
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.AgentSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session.ID = r.s.id("session")
	stored := *session
	r.s.sessions[session.ID] = &stored
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id string) (*domain.AgentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (r *memSessionRepo) GetActiveByAgent(_ context.Context, agentID string) (*domain.AgentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.AgentID == agentID && session.LogoutAt == nil {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) Close(_ context.Context, id string, logoutAt time.Time, duration time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok || session.LogoutAt != nil {
		return pgx.ErrNoRows
	}
	at := logoutAt
	d := duration
	session.LogoutAt = &at
	session.Duration = &d
	return nil
}

func (r *memSessionRepo) ListActiveOlderThan(_ context.Context, cutoff time.Time) ([]domain.AgentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.AgentSession
	for _, session := range r.s.sessions {
		if session.LogoutAt == nil && session.LoginAt.Before(cutoff) {
			result = append(result, *session)
		}
	}
	return result, nil
}

func (r *memSessionRepo) IncrementActiveReplyCount(_ context.Context, agentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.AgentID == agentID && session.LogoutAt == nil {
			session.ReplyCount++
		}
	}
	return nil
}

func (r *memSessionRepo) StatsByAgent(context.Context) ([]repository.SessionStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byAgent := make(map[string]*repository.SessionStats)
	for _, session := range r.s.sessions {
		stats, ok := byAgent[session.AgentID]
		if !ok {
			stats = &repository.SessionStats{AgentID: session.AgentID}
			byAgent[session.AgentID] = stats
		}
		stats.SessionCount++
		stats.TotalReplies += session.ReplyCount
		if session.LoginAt.After(stats.LastLoginAt) {
			stats.LastLoginAt = session.LoginAt
		}
		if session.LogoutAt == nil {
			stats.Online = true
		} else {
			stats.ClosedCount++
			if session.Duration != nil {
				stats.TotalDuration += *session.Duration
			}
		}
	}
	var result []repository.SessionStats
	for _, stats := range byAgent {
		result = append(result, *stats)
	}
	return result, nil
}

type memTimeEntryRepo struct {
	s *memStore
}

func (r *memTimeEntryRepo) Create(_ context.Context, entry *domain.TimeEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id("time")
	entry.CreatedAt = r.s.now()
	stored := *entry
	r.s.timeEntries = append(r.s.timeEntries, &stored)
	return nil
}

func (r *memTimeEntryRepo) SumByAgentForTicket(_ context.Context, ticketID string) (map[string]time.Duration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make(map[string]time.Duration)
	for _, entry := range r.s.timeEntries {
		if entry.TicketID == ticketID {
			result[entry.AgentID] += entry.Duration
		}
	}
	return result, nil
}

func (r *memTimeEntryRepo) TotalsByAgentTicket(context.Context) ([]repository.AgentTicketDuration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type key struct{ agent, ticket string }
	totals := make(map[key]time.Duration)
	for _, entry := range r.s.timeEntries {
		totals[key{entry.AgentID, entry.TicketID}] += entry.Duration
	}
	var result []repository.AgentTicketDuration
	for k, total := range totals {
		result = append(result, repository.AgentTicketDuration{AgentID: k.agent, TicketID: k.ticket, Total: total})
	}
	return result, nil
}

type memSettingsRepo struct {
	s *memStore
}

func (r *memSettingsRepo) Get(context.Context) (*domain.AutomationSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings == nil {
		return nil, nil
	}
	copied := *r.s.settings
	return &copied, nil
}

func (r *memSettingsRepo) Upsert(_ context.Context, settings *domain.AutomationSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	settings.UpdatedAt = r.s.now()
	stored := *settings
	r.s.settings = &stored
	return nil
}

type memAttachmentRepo struct {
	s *memStore
}

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.AttachmentReference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	attachment.ID = r.s.id("attachment")
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = r.s.now()
	}
	stored := *attachment
	r.s.attachments = append(r.s.attachments, &stored)
	return nil
}

func (r *memAttachmentRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var keys []string
	var kept []*domain.AttachmentReference
	for _, attachment := range r.s.attachments {
		if attachment.CreatedAt.Before(cutoff) {
			keys = append(keys, attachment.StorageKey)
		} else {
			kept = append(kept, attachment)
		}
	}
	r.s.attachments = kept
	return keys, nil
}

type memUserRepo struct {
	s *memStore
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// testClock hands out strictly increasing instants so ordering by
// timestamp is never ambiguous in tests.
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{at: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(time.Millisecond)
	return c.at
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

func (c *testClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}
