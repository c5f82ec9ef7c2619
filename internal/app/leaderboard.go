package app

import (
	"sort"
	"sync"
	"time"

	"daily-trivia-service/internal/domain"
)

// scoreEntry is the ledger's internal entry. The period key is tracked here
// and never exposed; readers only ever see entries whose key matches "now".
type scoreEntry struct {
	player    string
	points    int
	periodKey string
	updatedAt time.Time
}

// Leaderboard is the per-tenant, per-period score ledger. Non-all-time
// entries are bound to a period key and reset implicitly when the key
// rolls: writing into a new period replaces the stale entry, and reads
// lazily evict entries whose key no longer matches the current period.
type Leaderboard struct {
	mu  sync.RWMutex
	now func() time.Time

	// boards: period type -> tenant -> player -> entry.
	boards map[domain.PeriodType]map[string]map[string]*scoreEntry
}

func NewLeaderboard() *Leaderboard {
	return NewLeaderboardWithClock(time.Now)
}

// NewLeaderboardWithClock allows deterministic period rollover in tests.
func NewLeaderboardWithClock(now func() time.Time) *Leaderboard {
	boards := make(map[domain.PeriodType]map[string]map[string]*scoreEntry, len(domain.PeriodTypes))
	for _, periodType := range domain.PeriodTypes {
		boards[periodType] = make(map[string]map[string]*scoreEntry)
	}
	return &Leaderboard{now: now, boards: boards}
}

// AddScore applies delta for the period containing at in loc. An entry from
// the same period accumulates; an entry from a previous period is replaced
// by a fresh one worth delta (reset-then-accumulate at period boundaries).
// Negative deltas are allowed for administrative corrections.
func (l *Leaderboard) AddScore(periodType domain.PeriodType, tenant, player string, delta int, at time.Time, loc *time.Location) {
	key := periodKey(periodType, at, loc)

	l.mu.Lock()
	defer l.mu.Unlock()

	tenants := l.boards[periodType]
	players, ok := tenants[tenant]
	if !ok {
		players = make(map[string]*scoreEntry)
		tenants[tenant] = players
	}

	if entry, ok := players[player]; ok && entry.periodKey == key {
		entry.points += delta
		entry.updatedAt = at
		return
	}
	players[player] = &scoreEntry{
		player:    player,
		points:    delta,
		periodKey: key,
		updatedAt: at,
	}
}

// TopN returns up to limit entries for the tenant's current period, sorted
// by points descending. Ties go to the earlier scorer, then to player id.
// Stale entries from previous periods are evicted on the way.
func (l *Leaderboard) TopN(periodType domain.PeriodType, tenant string, limit int, loc *time.Location) []domain.ScoreEntry {
	if limit <= 0 {
		return nil
	}
	key := periodKey(periodType, l.now(), loc)

	l.mu.Lock()
	defer l.mu.Unlock()

	players := l.boards[periodType][tenant]
	l.evictStaleLocked(periodType, tenant, key)

	entries := make([]domain.ScoreEntry, 0, len(players))
	for _, entry := range players {
		entries = append(entries, domain.ScoreEntry{
			Player:    entry.player,
			Points:    entry.points,
			UpdatedAt: entry.updatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		return entries[i].Player < entries[j].Player
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// ScoreOf returns the player's entry for the tenant's current period, or
// false if absent or stale (stale entries are evicted).
func (l *Leaderboard) ScoreOf(periodType domain.PeriodType, tenant, player string, loc *time.Location) (domain.ScoreEntry, bool) {
	key := periodKey(periodType, l.now(), loc)

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.boards[periodType][tenant][player]
	if !ok {
		return domain.ScoreEntry{}, false
	}
	if entry.periodKey != key {
		delete(l.boards[periodType][tenant], player)
		return domain.ScoreEntry{}, false
	}
	return domain.ScoreEntry{
		Player:    entry.player,
		Points:    entry.points,
		UpdatedAt: entry.updatedAt,
	}, true
}

// evictStaleLocked drops the tenant's entries whose period key differs from
// currentKey. All-time entries share a constant key and never match.
func (l *Leaderboard) evictStaleLocked(periodType domain.PeriodType, tenant, currentKey string) {
	players := l.boards[periodType][tenant]
	for player, entry := range players {
		if entry.periodKey != currentKey {
			delete(players, player)
		}
	}
}

// Snapshot exports all entries grouped by period type then tenant.
func (l *Leaderboard) Snapshot() domain.LeaderboardSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := domain.LeaderboardSnapshot{
		Version: domain.LeaderboardSnapshotVersion,
		Boards:  make(map[domain.PeriodType]map[string][]domain.ScoreEntrySnapshot, len(l.boards)),
	}
	for periodType, tenants := range l.boards {
		byTenant := make(map[string][]domain.ScoreEntrySnapshot, len(tenants))
		for tenant, players := range tenants {
			if len(players) == 0 {
				continue
			}
			entries := make([]domain.ScoreEntrySnapshot, 0, len(players))
			for _, entry := range players {
				entries = append(entries, domain.ScoreEntrySnapshot{
					Player:    entry.player,
					Points:    entry.points,
					PeriodKey: entry.periodKey,
					UpdatedAt: entry.updatedAt,
				})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Player < entries[j].Player })
			byTenant[tenant] = entries
		}
		snapshot.Boards[periodType] = byTenant
	}
	return snapshot
}

// Restore replaces the ledger's contents with the snapshot, skipping
// non-positive entries. Version-1 snapshots carry no period key; those
// entries are restored under the key of their last update in loc so the
// lazy eviction on the next read decides their fate.
func (l *Leaderboard) Restore(snapshot domain.LeaderboardSnapshot, loc *time.Location) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, periodType := range domain.PeriodTypes {
		l.boards[periodType] = make(map[string]map[string]*scoreEntry)
	}
	for periodType, tenants := range snapshot.Boards {
		board, ok := l.boards[periodType]
		if !ok {
			continue
		}
		for tenant, entries := range tenants {
			players := make(map[string]*scoreEntry, len(entries))
			for _, entry := range entries {
				if entry.Points <= 0 || entry.Player == "" {
					continue
				}
				key := entry.PeriodKey
				if key == "" {
					key = periodKey(periodType, entry.UpdatedAt, loc)
				}
				players[entry.Player] = &scoreEntry{
					player:    entry.Player,
					points:    entry.Points,
					periodKey: key,
					updatedAt: entry.UpdatedAt,
				}
			}
			if len(players) > 0 {
				board[tenant] = players
			}
		}
	}
}
