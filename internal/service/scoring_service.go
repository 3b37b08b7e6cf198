package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/errorutil"
)

// Contribution weighting: 60% tracked time, 40% reply count.
const (
	timeWeight  = 0.6
	replyWeight = 0.4
)

// ScoringService produces the attribution reports. Each report runs all
// of its reads inside one transaction scope so the two per-agent views
// never disagree about the same snapshot.
type ScoringService struct {
	uow    repository.UnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

// NewScoringService constructs the service.
func NewScoringService(uow repository.UnitOfWork, logger *zap.Logger, now func() time.Time) *ScoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &ScoringService{uow: uow, logger: logger, now: now}
}

// TicketContribution splits credit for one ticket among the agents who
// touched it. Reply counts include internal notes.
type TicketContribution struct {
	AgentID             string        `json:"agent_id"`
	TimeSpent           time.Duration `json:"time_spent"`
	ReplyCount          int           `json:"reply_count"`
	ContributionPercent int           `json:"contribution_percent"`
}

// AssignmentPerformance is the formal-assignment view of one agent.
type AssignmentPerformance struct {
	AgentID            string        `json:"agent_id"`
	AssignedTickets    int           `json:"assigned_tickets"`
	SolvedTickets      int           `json:"solved_tickets"`
	SolveRate          float64       `json:"solve_rate"`
	SessionCount       int           `json:"session_count"`
	AvgSessionDuration time.Duration `json:"avg_session_duration"`
	LastLoginAt        *time.Time    `json:"last_login_at,omitempty"`
	Online             bool          `json:"online"`
	TotalReplies       int           `json:"total_replies"`
}

// ContributionPerformance is the any-recorded-work view of one agent:
// every ticket with at least one time entry or one non-system comment
// by the agent counts, regardless of assignment.
type ContributionPerformance struct {
	AgentID          string        `json:"agent_id"`
	TicketCount      int           `json:"ticket_count"`
	SolvedTickets    int           `json:"solved_tickets"`
	SolveRate        float64       `json:"solve_rate"`
	TotalTimeSpent   time.Duration `json:"total_time_spent"`
	TotalReplies     int           `json:"total_replies"`
	AvgTimePerTicket time.Duration `json:"avg_time_per_ticket"`
}

// PerformanceReport bundles both views computed from one snapshot.
type PerformanceReport struct {
	Assignment   []AssignmentPerformance   `json:"assignment"`
	Contribution []ContributionPerformance `json:"contribution"`
	GeneratedAt  time.Time                 `json:"generated_at"`
}

// GetTicketContributions returns the per-agent credit split for one ticket.
func (s *ScoringService) GetTicketContributions(ctx context.Context, ticketID string) ([]TicketContribution, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Tickets().GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	times, err := tx.TimeEntries().SumByAgentForTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	replies, err := tx.Comments().StaffReplyCountsByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return splitContributions(times, replies), nil
}

// splitContributions computes the weighted shares. Shares against a
// zero total are zero, matching the rule that a dimension nobody used
// contributes nothing.
func splitContributions(times map[string]time.Duration, replies map[string]int) []TicketContribution {
	agents := make(map[string]struct{}, len(times)+len(replies))
	var totalTime time.Duration
	totalReplies := 0
	for agentID, spent := range times {
		agents[agentID] = struct{}{}
		totalTime += spent
	}
	for agentID, count := range replies {
		agents[agentID] = struct{}{}
		totalReplies += count
	}

	result := make([]TicketContribution, 0, len(agents))
	for agentID := range agents {
		row := TicketContribution{
			AgentID:    agentID,
			TimeSpent:  times[agentID],
			ReplyCount: replies[agentID],
		}
		var timeShare, replyShare float64
		if totalTime > 0 {
			timeShare = float64(row.TimeSpent) / float64(totalTime)
		}
		if totalReplies > 0 {
			replyShare = float64(row.ReplyCount) / float64(totalReplies)
		}
		row.ContributionPercent = int(math.Round((timeShare*timeWeight + replyShare*replyWeight) * 100))
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ContributionPercent != result[j].ContributionPercent {
			return result[i].ContributionPercent > result[j].ContributionPercent
		}
		return result[i].AgentID < result[j].AgentID
	})
	return result
}

// GetAssignmentPerformance returns the assignment-based view.
func (s *ScoringService) GetAssignmentPerformance(ctx context.Context) ([]AssignmentPerformance, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	return assignmentView(ctx, tx)
}

// GetContributionPerformance returns the contribution-based view.
func (s *ScoringService) GetContributionPerformance(ctx context.Context) ([]ContributionPerformance, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	return contributionView(ctx, tx)
}

// GetPerformanceReport computes both views from a single snapshot.
func (s *ScoringService) GetPerformanceReport(ctx context.Context) (*PerformanceReport, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	assignment, err := assignmentView(ctx, tx)
	if err != nil {
		return nil, err
	}
	contribution, err := contributionView(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &PerformanceReport{
		Assignment:   assignment,
		Contribution: contribution,
		GeneratedAt:  s.now(),
	}, nil
}

func assignmentView(ctx context.Context, tx repository.Tx) ([]AssignmentPerformance, error) {
	stats, err := tx.Tickets().AssignmentStats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sessions, err := tx.Sessions().StatsByAgent(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	byAgent := make(map[string]*AssignmentPerformance)
	for _, stat := range stats {
		byAgent[stat.AgentID] = &AssignmentPerformance{
			AgentID:         stat.AgentID,
			AssignedTickets: stat.Assigned,
			SolvedTickets:   stat.Solved,
			SolveRate:       rate(stat.Solved, stat.Assigned),
		}
	}
	for _, sess := range sessions {
		row, ok := byAgent[sess.AgentID]
		if !ok {
			row = &AssignmentPerformance{AgentID: sess.AgentID}
			byAgent[sess.AgentID] = row
		}
		row.SessionCount = sess.SessionCount
		if sess.ClosedCount > 0 {
			row.AvgSessionDuration = sess.TotalDuration / time.Duration(sess.ClosedCount)
		}
		lastLogin := sess.LastLoginAt
		row.LastLoginAt = &lastLogin
		row.Online = sess.Online
		row.TotalReplies = sess.TotalReplies
	}
	return sortedAssignment(byAgent), nil
}

func contributionView(ctx context.Context, tx repository.Tx) ([]ContributionPerformance, error) {
	durations, err := tx.TimeEntries().TotalsByAgentTicket(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	replies, err := tx.Comments().StaffReplyTotals(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	type agentAgg struct {
		tickets   map[string]struct{}
		totalTime time.Duration
		replies   int
	}
	byAgent := make(map[string]*agentAgg)
	agg := func(agentID string) *agentAgg {
		a, ok := byAgent[agentID]
		if !ok {
			a = &agentAgg{tickets: make(map[string]struct{})}
			byAgent[agentID] = a
		}
		return a
	}
	ticketIDs := make(map[string]struct{})
	for _, row := range durations {
		a := agg(row.AgentID)
		a.tickets[row.TicketID] = struct{}{}
		a.totalTime += row.Total
		ticketIDs[row.TicketID] = struct{}{}
	}
	for _, row := range replies {
		a := agg(row.AgentID)
		a.tickets[row.TicketID] = struct{}{}
		a.replies += row.Replies
		ticketIDs[row.TicketID] = struct{}{}
	}

	ids := make([]string, 0, len(ticketIDs))
	for id := range ticketIDs {
		ids = append(ids, id)
	}
	statuses, err := tx.Tickets().StatusesByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := make([]ContributionPerformance, 0, len(byAgent))
	for agentID, a := range byAgent {
		row := ContributionPerformance{
			AgentID:        agentID,
			TicketCount:    len(a.tickets),
			TotalTimeSpent: a.totalTime,
			TotalReplies:   a.replies,
		}
		for ticketID := range a.tickets {
			if statuses[ticketID] == domain.TicketStatusSolved {
				row.SolvedTickets++
			}
		}
		row.SolveRate = rate(row.SolvedTickets, row.TicketCount)
		if row.TicketCount > 0 {
			row.AvgTimePerTicket = a.totalTime / time.Duration(row.TicketCount)
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AgentID < result[j].AgentID })
	return result, nil
}

func sortedAssignment(byAgent map[string]*AssignmentPerformance) []AssignmentPerformance {
	result := make([]AssignmentPerformance, 0, len(byAgent))
	for _, row := range byAgent {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AgentID < result[j].AgentID })
	return result
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
