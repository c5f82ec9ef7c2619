package domain

import (
	"sync"
	"time"
)

// Tier is the difficulty level of a daily question.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Tiers lists all difficulty levels in display order.
var Tiers = []Tier{TierEasy, TierMedium, TierHard}

// PeriodType identifies one of the rolling leaderboard windows.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodAllTime PeriodType = "alltime"
)

// PeriodTypes lists all leaderboard windows.
var PeriodTypes = []PeriodType{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

// Outcome is the result of a player's single attempt at a question.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeTimeout   Outcome = "timeout"
)

// GradedQuestion is one question fetched from a provider. Immutable once fetched.
type GradedQuestion struct {
	ID       string   `json:"id"`
	Tier     Tier     `json:"tier"`
	Prompt   string   `json:"prompt"`
	Answer   string   `json:"answer"`
	Decoys   []string `json:"decoys"`
	Category string   `json:"category,omitempty"`
}

// Options returns the answer plus decoys, deduplicated, answer first.
func (q GradedQuestion) Options() []string {
	seen := map[string]struct{}{q.Answer: {}}
	options := []string{q.Answer}
	for _, decoy := range q.Decoys {
		if _, ok := seen[decoy]; ok {
			continue
		}
		seen[decoy] = struct{}{}
		options = append(options, decoy)
	}
	return options
}

// Participation records a player's single attempt at one tier.
// Answer is empty when the player never selected an option (timeout).
type Participation struct {
	Answer     string    `json:"answer,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// TierState pairs a question with the per-tenant participation records
// accumulated against it. Participants maps tenant id -> player id -> attempt.
type TierState struct {
	Question     GradedQuestion
	Participants map[string]map[string]Participation
}

// QuestionSet holds the three graded questions for one calendar day.
// The day key is tenant-agnostic; participation is partitioned per tenant.
// Questions are immutable after creation; participation growth is the only
// permitted mutation and is guarded internally, so a set handed out by the
// cache is safe to read from the posting side while answers come in.
type QuestionSet struct {
	Day         string
	GeneratedAt time.Time

	mu    sync.RWMutex
	tiers map[Tier]*TierState
}

// NewQuestionSet builds a set from one state per tier.
func NewQuestionSet(day string, generatedAt time.Time, tiers map[Tier]*TierState) *QuestionSet {
	for _, state := range tiers {
		if state.Participants == nil {
			state.Participants = make(map[string]map[string]Participation)
		}
	}
	return &QuestionSet{Day: day, GeneratedAt: generatedAt, tiers: tiers}
}

// Question returns the tier's question.
func (s *QuestionSet) Question(tier Tier) (GradedQuestion, bool) {
	state, ok := s.tiers[tier]
	if !ok {
		return GradedQuestion{}, false
	}
	return state.Question, true
}

// AttemptCount returns how many players of the tenant attempted the tier.
func (s *QuestionSet) AttemptCount(tier Tier, tenant string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.tiers[tier]
	if !ok {
		return 0
	}
	return len(state.Participants[tenant])
}

// HasAnswered reports whether the player already attempted the tier for the
// tenant. Participation restored from pre-tenant snapshots is honored
// through the legacy key until its first migration.
func (s *QuestionSet) HasAnswered(tier Tier, tenant, player string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.tiers[tier]
	if !ok {
		return false
	}
	if players, ok := state.Participants[tenant]; ok {
		_, answered := players[player]
		return answered
	}
	if players, ok := state.Participants[LegacyTenantKey]; ok {
		_, answered := players[player]
		return answered
	}
	return false
}

// RecordParticipation writes the player's attempt. Writes are idempotent by
// key: a second write for the same player overwrites. The first write for a
// tenant adopts any legacy unpartitioned participation loaded for this day.
func (s *QuestionSet) RecordParticipation(tier Tier, tenant, player string, participation Participation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.tiers[tier]
	if !ok {
		return false
	}
	players, ok := state.Participants[tenant]
	if !ok {
		if legacy, hasLegacy := state.Participants[LegacyTenantKey]; hasLegacy {
			players = legacy
			delete(state.Participants, LegacyTenantKey)
		} else {
			players = make(map[string]Participation)
		}
		state.Participants[tenant] = players
	}
	players[player] = participation
	return true
}

// TierStates copies the per-tier states for serialization: questions by
// value, participation maps deep-copied.
func (s *QuestionSet) TierStates() map[Tier]TierState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Tier]TierState, len(s.tiers))
	for tier, state := range s.tiers {
		participants := make(map[string]map[string]Participation, len(state.Participants))
		for tenant, players := range state.Participants {
			copied := make(map[string]Participation, len(players))
			for player, participation := range players {
				copied[player] = participation
			}
			participants[tenant] = copied
		}
		out[tier] = TierState{Question: state.Question, Participants: participants}
	}
	return out
}

// MessageLocation identifies where an announcement was posted.
type MessageLocation struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
}

// GameSession records that a tenant's announcement for a day has been posted.
// One per (tenant, day); its existence means "already announced today".
type GameSession struct {
	Tenant    string    `json:"tenant"`
	Day       string    `json:"day"`
	ChannelID string    `json:"channelId"`
	MessageID string    `json:"messageId"`
	ThreadID  string    `json:"threadId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Location returns the announcement handle for edits and deletion.
func (s GameSession) Location() MessageLocation {
	return MessageLocation{ChannelID: s.ChannelID, MessageID: s.MessageID}
}

// ScoreEntry is one player's accumulated points in one period window.
type ScoreEntry struct {
	Player    string    `json:"player"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TenantSchedule is a tenant's daily announcement configuration.
type TenantSchedule struct {
	Tenant    string    `json:"tenant"`
	ChannelID string    `json:"channelId"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultTimezone is used when a tenant schedule has no explicit zone.
const DefaultTimezone = "Europe/Paris"

// Location resolves the schedule's IANA zone, falling back to the default
// when the zone is blank or unknown.
func (t TenantSchedule) Location() *time.Location {
	name := t.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

// DayKeyFormat renders day keys such as 2024-01-15.
const DayKeyFormat = "2006-01-02"

// DayKey returns the calendar-date key for t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyFormat)
}
