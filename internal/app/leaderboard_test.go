package app_test

import (
	"testing"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
)

func TestAddScoreAccumulatesWithinPeriod(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	lb.AddScore(domain.PeriodDaily, "tenant-1", "alice", 100, now, time.UTC)
	lb.AddScore(domain.PeriodDaily, "tenant-1", "alice", 50, now.Add(2*time.Hour), time.UTC)

	entry, ok := lb.ScoreOf(domain.PeriodDaily, "tenant-1", "alice", time.UTC)
	if !ok {
		t.Fatalf("expected entry for alice")
	}
	if entry.Points != 150 {
		t.Fatalf("expected 150 points, got %d", entry.Points)
	}
}

func TestDailyRolloverResetsScore(t *testing.T) {
	now := time.Date(2024, 5, 15, 23, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	lb.AddScore(domain.PeriodDaily, "tenant-1", "alice", 100, now, time.UTC)

	// Next calendar day: the old entry is stale and evicted on read.
	now = now.Add(2 * time.Hour)
	if _, ok := lb.ScoreOf(domain.PeriodDaily, "tenant-1", "alice", time.UTC); ok {
		t.Fatalf("expected daily score to reset after rollover")
	}

	// A write in the new period starts from scratch, not from 100.
	lb.AddScore(domain.PeriodDaily, "tenant-1", "alice", 50, now, time.UTC)
	entry, ok := lb.ScoreOf(domain.PeriodDaily, "tenant-1", "alice", time.UTC)
	if !ok || entry.Points != 50 {
		t.Fatalf("expected fresh 50 points after rollover, got %+v ok=%v", entry, ok)
	}
}

func TestAllTimeSurvivesRollover(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	lb.AddScore(domain.PeriodAllTime, "tenant-1", "alice", 100, now, time.UTC)

	// Across a year boundary every calendar window rolls; all-time does not.
	now = now.AddDate(0, 0, 40)
	lb.AddScore(domain.PeriodAllTime, "tenant-1", "alice", 50, now, time.UTC)

	entry, ok := lb.ScoreOf(domain.PeriodAllTime, "tenant-1", "alice", time.UTC)
	if !ok || entry.Points != 150 {
		t.Fatalf("expected all-time 150 points, got %+v ok=%v", entry, ok)
	}
}

func TestRolloverUsesTenantZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 16:00 UTC on May 15 is already May 16 in Tokyo.
	now := time.Date(2024, 5, 15, 16, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	lb.AddScore(domain.PeriodDaily, "tenant-1", "alice", 100, now.Add(-3*time.Hour), tokyo)

	if _, ok := lb.ScoreOf(domain.PeriodDaily, "tenant-1", "alice", tokyo); ok {
		t.Fatalf("expected score written before Tokyo midnight to be stale")
	}
	if _, ok := lb.ScoreOf(domain.PeriodDaily, "tenant-1", "alice", time.UTC); ok {
		// The earlier eviction under the Tokyo key removed the entry
		// entirely; reading under UTC must not resurrect it.
		t.Fatalf("expected entry to stay evicted")
	}
}

func TestTopNOrdering(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	lb.AddScore(domain.PeriodWeekly, "tenant-1", "carol", 100, now.Add(time.Minute), time.UTC)
	lb.AddScore(domain.PeriodWeekly, "tenant-1", "alice", 100, now, time.UTC)
	lb.AddScore(domain.PeriodWeekly, "tenant-1", "bob", 250, now, time.UTC)
	lb.AddScore(domain.PeriodWeekly, "tenant-1", "dave", 10, now, time.UTC)

	entries := lb.TopN(domain.PeriodWeekly, "tenant-1", 3, time.UTC)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Player != "bob" {
		t.Fatalf("expected bob first, got %s", entries[0].Player)
	}
	// Equal points: the earlier scorer ranks higher.
	if entries[1].Player != "alice" || entries[2].Player != "carol" {
		t.Fatalf("expected alice then carol on the tie, got %s then %s", entries[1].Player, entries[2].Player)
	}
}

func TestTopNIsolatesTenants(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	lb.AddScore(domain.PeriodDaily, "tenant-1", "alice", 100, now, time.UTC)
	lb.AddScore(domain.PeriodDaily, "tenant-2", "bob", 200, now, time.UTC)

	entries := lb.TopN(domain.PeriodDaily, "tenant-1", 10, time.UTC)
	if len(entries) != 1 || entries[0].Player != "alice" {
		t.Fatalf("expected only alice for tenant-1, got %+v", entries)
	}
}

func TestRestoreSkipsInvalidEntries(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	lb.Restore(domain.LeaderboardSnapshot{
		Version: domain.LeaderboardSnapshotVersion,
		Boards: map[domain.PeriodType]map[string][]domain.ScoreEntrySnapshot{
			domain.PeriodDaily: {
				"tenant-1": {
					{Player: "alice", Points: 100, PeriodKey: "2024-05-15", UpdatedAt: now},
					{Player: "bob", Points: 0, PeriodKey: "2024-05-15", UpdatedAt: now},
					{Player: "", Points: 50, PeriodKey: "2024-05-15", UpdatedAt: now},
					{Player: "carol", Points: -10, PeriodKey: "2024-05-15", UpdatedAt: now},
				},
			},
		},
	}, time.UTC)

	entries := lb.TopN(domain.PeriodDaily, "tenant-1", 10, time.UTC)
	if len(entries) != 1 || entries[0].Player != "alice" {
		t.Fatalf("expected only alice to survive restore, got %+v", entries)
	}
}

func TestRestoreDerivesMissingPeriodKey(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })

	// Version-1 snapshots carried no period key. An entry updated today
	// belongs to today's period; one updated yesterday is stale.
	lb.Restore(domain.LeaderboardSnapshot{
		Boards: map[domain.PeriodType]map[string][]domain.ScoreEntrySnapshot{
			domain.PeriodDaily: {
				"tenant-1": {
					{Player: "alice", Points: 100, UpdatedAt: now.Add(-time.Hour)},
					{Player: "bob", Points: 80, UpdatedAt: now.AddDate(0, 0, -1)},
				},
			},
		},
	}, time.UTC)

	if _, ok := lb.ScoreOf(domain.PeriodDaily, "tenant-1", "alice", time.UTC); !ok {
		t.Fatalf("expected alice's entry to survive")
	}
	if _, ok := lb.ScoreOf(domain.PeriodDaily, "tenant-1", "bob", time.UTC); ok {
		t.Fatalf("expected bob's stale entry to be evicted")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	lb := app.NewLeaderboardWithClock(func() time.Time { return now })
	lb.AddScore(domain.PeriodMonthly, "tenant-1", "alice", 100, now, time.UTC)
	lb.AddScore(domain.PeriodAllTime, "tenant-1", "alice", 100, now, time.UTC)

	restored := app.NewLeaderboardWithClock(func() time.Time { return now })
	restored.Restore(lb.Snapshot(), time.UTC)

	for _, periodType := range []domain.PeriodType{domain.PeriodMonthly, domain.PeriodAllTime} {
		entry, ok := restored.ScoreOf(periodType, "tenant-1", "alice", time.UTC)
		if !ok || entry.Points != 100 {
			t.Fatalf("%s: expected 100 points after round trip, got %+v ok=%v", periodType, entry, ok)
		}
	}
}
