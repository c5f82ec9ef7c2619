package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/scoring"
)

const (
	// DefaultAnswerTimeout bounds the interactive answer prompt.
	DefaultAnswerTimeout = 20 * time.Second
	// DefaultTopLimit caps leaderboard queries.
	DefaultTopLimit = 10
	// MaxTopLimit is the hard ceiling for a caller-supplied limit.
	MaxTopLimit = 50
)

// TriviaService orchestrates the daily game: the post-if-absent announcement
// cycle, the single-attempt answer flow, and the administrative operations.
// It checkpoints state through the Persistence collaborator after each
// mutation; persistence failures are logged and in-memory state stays
// authoritative for the rest of the process lifetime.
type TriviaService struct {
	sessions  *SessionRegistry
	questions *QuestionSetCache
	ledger    *Leaderboard
	tenants   TenantConfigStore
	poster    Poster
	store     Persistence

	now           func() time.Time
	answerTimeout time.Duration
	topLimit      int

	// attemptLocks serializes the check-then-record sequence per
	// (tenant, day, tier, player) so two racing attempts by the same
	// player cannot both be scored. cycleLocks serializes the session
	// check-then-post per tenant so a timer fire racing an admin cycle
	// cannot both announce.
	attemptLocks *keyedLocks
	cycleLocks   *keyedLocks
}

func NewTriviaService(sessions *SessionRegistry, questions *QuestionSetCache, ledger *Leaderboard, tenants TenantConfigStore, poster Poster, store Persistence) *TriviaService {
	return &TriviaService{
		sessions:      sessions,
		questions:     questions,
		ledger:        ledger,
		tenants:       tenants,
		poster:        poster,
		store:         store,
		now:           time.Now,
		answerTimeout: DefaultAnswerTimeout,
		topLimit:      DefaultTopLimit,
		attemptLocks:  newKeyedLocks(),
		cycleLocks:    newKeyedLocks(),
	}
}

// SetClock is test-only for deterministic timestamps.
func (s *TriviaService) SetClock(now func() time.Time) { s.now = now }

// SetAnswerTimeout overrides the prompt timeout.
func (s *TriviaService) SetAnswerTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.answerTimeout = timeout
	}
}

// SetTopLimit overrides the default leaderboard query limit.
func (s *TriviaService) SetTopLimit(limit int) {
	if limit > 0 {
		s.topLimit = limit
	}
}

// RestoreFromStore loads the persisted snapshots. Load failures degrade to
// empty state with a warning; startup never fails here.
func (s *TriviaService) RestoreFromStore(ctx context.Context) {
	defaultLoc, err := time.LoadLocation(domain.DefaultTimezone)
	if err != nil {
		defaultLoc = time.UTC
	}

	if snapshot, err := s.store.LoadLeaderboard(ctx); err != nil {
		log.Printf("warning: leaderboard snapshot unavailable, starting empty: %v", err)
	} else {
		s.ledger.Restore(snapshot, defaultLoc)
	}

	if snapshot, err := s.store.LoadSessions(ctx); err != nil {
		log.Printf("warning: sessions snapshot unavailable, starting empty: %v", err)
	} else {
		s.sessions.Restore(snapshot)
	}

	if snapshot, err := s.store.LoadQuestionSets(ctx); err != nil {
		log.Printf("warning: question set snapshot unavailable, starting empty: %v", err)
	} else {
		s.questions.Restore(snapshot)
	}
}

// RunDailyCycle executes one announcement cycle for the tenant: resolve the
// day in the tenant's zone, skip if already announced (unless forced), fetch
// the question set, post, open the discussion thread, and record the session.
// Provider failures abort the cycle and are retried on the next fire.
func (s *TriviaService) RunDailyCycle(ctx context.Context, tenant string, force bool) error {
	schedule, ok := s.tenants.Get(tenant)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTenantNotConfigured, tenant)
	}
	loc := schedule.Location()
	day := domain.DayKey(s.now(), loc)

	// One cycle at a time per tenant: a concurrent fire must observe the
	// session this one records, not post a duplicate.
	unlock := s.cycleLocks.lock(tenant)
	defer unlock()

	existing, exists := s.sessions.Get(tenant, day)
	if exists && !force {
		log.Printf("announcement already posted for tenant %s on %s, skipping", tenant, day)
		return nil
	}

	if force && exists {
		// Best-effort teardown of the stale announcement; a failed
		// deletion must not block the replacement session.
		if err := s.poster.DeleteAnnouncement(ctx, existing.Location()); err != nil {
			log.Printf("could not delete stale announcement for tenant %s on %s: %v", tenant, day, err)
		}
		s.sessions.Remove(tenant, day)
		s.persistSessions(ctx)
	}

	set, err := s.questions.GetOrCreate(ctx, day)
	if err != nil {
		return fmt.Errorf("question set for %s: %w", day, err)
	}
	s.persistQuestionSets(ctx)

	location, err := s.poster.PostAnnouncement(ctx, schedule.ChannelID, set, tenant)
	if err != nil {
		return fmt.Errorf("post announcement for tenant %s: %w", tenant, err)
	}

	threadID, err := s.poster.OpenThread(ctx, location, "Answers "+day)
	if err != nil {
		log.Printf("could not open discussion thread for tenant %s on %s: %v", tenant, day, err)
		threadID = ""
	}

	s.sessions.Put(domain.GameSession{
		Tenant:    tenant,
		Day:       day,
		ChannelID: location.ChannelID,
		MessageID: location.MessageID,
		ThreadID:  threadID,
		CreatedAt: s.now(),
	})
	s.persistSessions(ctx)

	log.Printf("daily announcement posted for tenant %s on %s (message=%s thread=%s)", tenant, day, location.MessageID, threadID)
	return nil
}

// AnswerResult summarizes one attempt for the caller-facing layer.
type AnswerResult struct {
	Tier          domain.Tier    `json:"tier"`
	Outcome       domain.Outcome `json:"outcome"`
	Points        int            `json:"points"`
	ChosenAnswer  string         `json:"chosenAnswer,omitempty"`
	CorrectAnswer string         `json:"correctAnswer"`
}

// HandleAnswer runs one player's timed attempt: replay check, interactive
// prompt, comparison, participation record, and scoring on all four period
// windows for a correct answer. At most one attempt per (tenant, day, tier,
// player) is ever scored.
func (s *TriviaService) HandleAnswer(ctx context.Context, tenant, day string, tier domain.Tier, player string) (AnswerResult, error) {
	schedule, ok := s.tenants.Get(tenant)
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: %s", domain.ErrTenantNotConfigured, tenant)
	}
	session, ok := s.sessions.Get(tenant, day)
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: tenant %s day %s", domain.ErrSessionNotFound, tenant, day)
	}

	unlock := s.lockAttempt(tenant, day, tier, player)
	defer unlock()

	if s.questions.HasAnswered(day, tier, tenant, player) {
		return AnswerResult{}, domain.ErrAlreadyAnswered
	}

	set, err := s.questions.GetOrCreate(ctx, day)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("question set for %s: %w", day, err)
	}
	question, ok := set.Question(tier)
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: %s has no %s tier", domain.ErrQuestionSetNotFound, day, tier)
	}

	answer, answered, err := s.poster.PromptForAnswer(ctx, tenant, player, question, s.answerTimeout)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("prompt %s for %s answer: %w", player, tier, err)
	}

	now := s.now()
	result := AnswerResult{Tier: tier, CorrectAnswer: question.Answer, ChosenAnswer: answer}
	switch {
	case !answered:
		result.Outcome = domain.OutcomeTimeout
		result.ChosenAnswer = ""
	case AnswersMatch(answer, question.Answer):
		result.Outcome = domain.OutcomeCorrect
		result.Points = scoring.ComputePoints(tier, session.CreatedAt, now).Points
	default:
		result.Outcome = domain.OutcomeIncorrect
	}

	if err := s.questions.RecordParticipation(day, tier, tenant, player, domain.Participation{
		Answer:     result.ChosenAnswer,
		Outcome:    result.Outcome,
		AnsweredAt: now,
	}); err != nil {
		return AnswerResult{}, err
	}

	if result.Outcome == domain.OutcomeCorrect {
		loc := schedule.Location()
		for _, periodType := range domain.PeriodTypes {
			s.ledger.AddScore(periodType, tenant, player, result.Points, now, loc)
		}
		s.persistLeaderboard(ctx)
	}
	s.persistQuestionSets(ctx)

	if err := s.poster.EditAnnouncement(ctx, session.Location(), set, tenant); err != nil {
		log.Printf("could not refresh announcement for tenant %s on %s: %v", tenant, day, err)
	}
	if session.ThreadID != "" {
		if err := s.poster.PostToThread(ctx, session.ThreadID, threadLine(player, tier, result)); err != nil {
			log.Printf("could not post result to thread for tenant %s on %s: %v", tenant, day, err)
		}
	}
	return result, nil
}

func threadLine(player string, tier domain.Tier, result AnswerResult) string {
	switch result.Outcome {
	case domain.OutcomeCorrect:
		return fmt.Sprintf("%s answered the %s question (+%d pts).", player, tier, result.Points)
	case domain.OutcomeTimeout:
		return fmt.Sprintf("%s ran out of time on the %s question.", player, tier)
	default:
		return fmt.Sprintf("%s missed the %s question.", player, tier)
	}
}

// RegenerateToday drops today's question set and forces a fresh announcement
// cycle for the tenant. The stale session is invalidated by the forced cycle.
func (s *TriviaService) RegenerateToday(ctx context.Context, tenant string) error {
	schedule, ok := s.tenants.Get(tenant)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTenantNotConfigured, tenant)
	}
	day := domain.DayKey(s.now(), schedule.Location())
	s.questions.Regenerate(day)
	s.persistQuestionSets(ctx)
	return s.RunDailyCycle(ctx, tenant, true)
}

// AdjustScore applies an administrative delta to all four period windows.
func (s *TriviaService) AdjustScore(ctx context.Context, tenant, player string, delta int) error {
	schedule, ok := s.tenants.Get(tenant)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTenantNotConfigured, tenant)
	}
	now := s.now()
	loc := schedule.Location()
	for _, periodType := range domain.PeriodTypes {
		s.ledger.AddScore(periodType, tenant, player, delta, now, loc)
	}
	s.persistLeaderboard(ctx)
	log.Printf("adjusted score of %s by %+d for tenant %s", player, delta, tenant)
	return nil
}

// SetSchedule validates, clamps, and stores a tenant schedule. The caller is
// responsible for refreshing the scheduler afterwards.
func (s *TriviaService) SetSchedule(tenant, channelID string, hour, minute int, timezone string) (domain.TenantSchedule, error) {
	if tenant == "" || channelID == "" {
		return domain.TenantSchedule{}, fmt.Errorf("%w: tenant and channel are required", domain.ErrInvalidSchedule)
	}
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		timezone = domain.DefaultTimezone
	} else if _, err := time.LoadLocation(timezone); err != nil {
		return domain.TenantSchedule{}, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidSchedule, timezone)
	}

	return s.tenants.Set(domain.TenantSchedule{
		Tenant:    tenant,
		ChannelID: channelID,
		Hour:      clamp(hour, 0, 23),
		Minute:    clamp(minute, 0, 59),
		Timezone:  timezone,
	})
}

// TopN returns the tenant's leaderboard for the period, clamping the limit.
func (s *TriviaService) TopN(tenant string, periodType domain.PeriodType, limit int) ([]domain.ScoreEntry, error) {
	schedule, ok := s.tenants.Get(tenant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotConfigured, tenant)
	}
	if limit <= 0 {
		limit = s.topLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	return s.ledger.TopN(periodType, tenant, limit, schedule.Location()), nil
}

// PlayerScore returns one player's current-period entry, absent if rolled over.
func (s *TriviaService) PlayerScore(tenant, player string, periodType domain.PeriodType) (domain.ScoreEntry, bool, error) {
	schedule, ok := s.tenants.Get(tenant)
	if !ok {
		return domain.ScoreEntry{}, false, fmt.Errorf("%w: %s", domain.ErrTenantNotConfigured, tenant)
	}
	entry, found := s.ledger.ScoreOf(periodType, tenant, player, schedule.Location())
	return entry, found, nil
}

func (s *TriviaService) lockAttempt(tenant, day string, tier domain.Tier, player string) func() {
	return s.attemptLocks.lock(tenant + "|" + day + "|" + string(tier) + "|" + player)
}

func (s *TriviaService) persistLeaderboard(ctx context.Context) {
	if err := s.store.SaveLeaderboard(ctx, s.ledger.Snapshot()); err != nil {
		log.Printf("could not persist leaderboard, keeping in-memory state: %v", err)
	}
}

func (s *TriviaService) persistSessions(ctx context.Context) {
	if err := s.store.SaveSessions(ctx, s.sessions.Snapshot()); err != nil {
		log.Printf("could not persist sessions, keeping in-memory state: %v", err)
	}
}

func (s *TriviaService) persistQuestionSets(ctx context.Context) {
	if err := s.store.SaveQuestionSets(ctx, s.questions.Snapshot()); err != nil {
		log.Printf("could not persist question sets, keeping in-memory state: %v", err)
	}
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
