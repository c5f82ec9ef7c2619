package domain

import (
	"encoding/json"
	"time"
)

// Snapshot versions. Bump when a persisted shape changes; loaders must keep
// accepting older shapes.
const (
	LeaderboardSnapshotVersion  = 2
	SessionsSnapshotVersion     = 1
	QuestionSetsSnapshotVersion = 2
)

// LegacyTenantKey marks participation data restored from snapshots written
// before per-tenant partitioning. It is migrated to the real tenant key on
// the first write for that day.
const LegacyTenantKey = "__legacy__"

// ScoreEntrySnapshot is the persisted form of one leaderboard entry.
// PeriodKey is absent in version-1 snapshots.
type ScoreEntrySnapshot struct {
	Player    string    `json:"player"`
	Points    int       `json:"points"`
	PeriodKey string    `json:"periodKey,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LeaderboardSnapshot groups entries by period type, then tenant.
type LeaderboardSnapshot struct {
	Version int                                       `json:"version"`
	Boards  map[PeriodType]map[string][]ScoreEntrySnapshot `json:"boards"`
}

// SessionsSnapshot is the persisted set of announcement sessions.
type SessionsSnapshot struct {
	Version  int           `json:"version"`
	Sessions []GameSession `json:"sessions"`
}

// TierSnapshot persists one tier of a question set. Participants is kept raw
// so the loader can detect pre-tenant-partitioned (flat) shapes.
type TierSnapshot struct {
	Question     GradedQuestion  `json:"question"`
	Participants json.RawMessage `json:"participants,omitempty"`
}

// QuestionSetSnapshot persists one day's question set.
type QuestionSetSnapshot struct {
	GeneratedAt time.Time             `json:"generatedAt"`
	Tiers       map[Tier]TierSnapshot `json:"tiers"`
}

// QuestionSetsSnapshot persists the full day-keyed question cache.
type QuestionSetsSnapshot struct {
	Version int                            `json:"version"`
	Days    map[string]QuestionSetSnapshot `json:"days"`
}

// TenantsSnapshot is the persisted tenant configuration set.
type TenantsSnapshot struct {
	Version int                       `json:"version"`
	Tenants map[string]TenantSchedule `json:"tenants"`
}

// DecodeParticipants parses a persisted participant map, accepting the
// current tenant-partitioned shape plus two legacy ones: a flat
// player-to-participation map, and the oldest form, a bare array of player
// ids. Legacy data is adopted under LegacyTenantKey; array entries carry no
// outcome, so they are recorded as timeouts stamped with the set's
// generatedAt.
func DecodeParticipants(raw json.RawMessage, generatedAt time.Time) map[string]map[string]Participation {
	result := make(map[string]map[string]Participation)
	if len(raw) == 0 {
		return result
	}

	var partitioned map[string]map[string]Participation
	if err := json.Unmarshal(raw, &partitioned); err == nil {
		for tenant, players := range partitioned {
			if len(players) == 0 {
				continue
			}
			result[tenant] = players
		}
		return result
	}

	var flat map[string]Participation
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		result[LegacyTenantKey] = flat
		return result
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err == nil && len(ids) > 0 {
		adopted := make(map[string]Participation, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			adopted[id] = Participation{Outcome: OutcomeTimeout, AnsweredAt: generatedAt}
		}
		if len(adopted) > 0 {
			result[LegacyTenantKey] = adopted
		}
	}
	return result
}
