package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"daily-trivia-service/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client), mr
}

func TestStoreMissingKeysLoadEmpty(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	leaderboard, err := store.LoadLeaderboard(ctx)
	if err != nil {
		t.Fatalf("load leaderboard: %v", err)
	}
	if len(leaderboard.Boards) != 0 {
		t.Fatalf("expected an empty snapshot, got %+v", leaderboard)
	}
	sessions, err := store.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("load sessions: %v", err)
	}
	if len(sessions.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %+v", sessions)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	err := store.SaveLeaderboard(ctx, domain.LeaderboardSnapshot{
		Version: domain.LeaderboardSnapshotVersion,
		Boards: map[domain.PeriodType]map[string][]domain.ScoreEntrySnapshot{
			domain.PeriodDaily: {
				"tenant-1": {{Player: "alice", Points: 100, PeriodKey: "2024-05-15", UpdatedAt: now}},
			},
		},
	})
	if err != nil {
		t.Fatalf("save leaderboard: %v", err)
	}
	if !mr.Exists("trivia:snapshot:leaderboard") {
		t.Fatalf("expected redis key to be set")
	}

	loaded, err := store.LoadLeaderboard(ctx)
	if err != nil {
		t.Fatalf("load leaderboard: %v", err)
	}
	entries := loaded.Boards[domain.PeriodDaily]["tenant-1"]
	if len(entries) != 1 || entries[0].Player != "alice" || entries[0].Points != 100 {
		t.Fatalf("unexpected entries after round trip: %+v", entries)
	}

	err = store.SaveSessions(ctx, domain.SessionsSnapshot{
		Version:  domain.SessionsSnapshotVersion,
		Sessions: []domain.GameSession{{Tenant: "tenant-1", Day: "2024-05-15", MessageID: "m1"}},
	})
	if err != nil {
		t.Fatalf("save sessions: %v", err)
	}
	sessions, err := store.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("load sessions: %v", err)
	}
	if len(sessions.Sessions) != 1 || sessions.Sessions[0].MessageID != "m1" {
		t.Fatalf("unexpected sessions after round trip: %+v", sessions.Sessions)
	}
}

func TestStoreCorruptDocumentFailsLoad(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	mr.Set("trivia:snapshot:questions", "{not json")
	if _, err := store.LoadQuestionSets(ctx); err == nil {
		t.Fatalf("expected a decode error for a corrupt document")
	}
}
