package app_test

import (
	"testing"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
)

func TestSessionRegistryPutGetRemove(t *testing.T) {
	registry := app.NewSessionRegistry()

	session := domain.GameSession{
		Tenant:    "tenant-1",
		Day:       "2024-05-15",
		ChannelID: "chan-1",
		MessageID: "msg-1",
		ThreadID:  "thread-1",
		CreatedAt: time.Now(),
	}
	registry.Put(session)

	got, ok := registry.Get("tenant-1", "2024-05-15")
	if !ok {
		t.Fatalf("expected session after put")
	}
	if got.MessageID != "msg-1" || got.ThreadID != "thread-1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if _, ok := registry.Get("tenant-1", "2024-05-16"); ok {
		t.Fatalf("expected no session for another day")
	}
	if _, ok := registry.Get("tenant-2", "2024-05-15"); ok {
		t.Fatalf("expected no session for another tenant")
	}

	registry.Remove("tenant-1", "2024-05-15")
	if _, ok := registry.Get("tenant-1", "2024-05-15"); ok {
		t.Fatalf("expected session gone after remove")
	}
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	registry := app.NewSessionRegistry()
	registry.Put(domain.GameSession{Tenant: "tenant-b", Day: "2024-05-15", MessageID: "m1"})
	registry.Put(domain.GameSession{Tenant: "tenant-a", Day: "2024-05-16", MessageID: "m2"})
	registry.Put(domain.GameSession{Tenant: "tenant-a", Day: "2024-05-15", MessageID: "m3"})

	snapshot := registry.Snapshot()
	if len(snapshot.Sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(snapshot.Sessions))
	}
	// Stable order: tenant then day.
	if snapshot.Sessions[0].MessageID != "m3" || snapshot.Sessions[1].MessageID != "m2" || snapshot.Sessions[2].MessageID != "m1" {
		t.Fatalf("unexpected snapshot order: %+v", snapshot.Sessions)
	}

	restored := app.NewSessionRegistry()
	restored.Restore(snapshot)
	if _, ok := restored.Get("tenant-b", "2024-05-15"); !ok {
		t.Fatalf("expected session after restore")
	}
}

func TestSessionRestoreSkipsInvalidEntries(t *testing.T) {
	registry := app.NewSessionRegistry()
	registry.Restore(domain.SessionsSnapshot{
		Version: domain.SessionsSnapshotVersion,
		Sessions: []domain.GameSession{
			{Tenant: "", Day: "2024-05-15"},
			{Tenant: "tenant-1", Day: ""},
			{Tenant: "tenant-1", Day: "2024-05-15", MessageID: "m1"},
		},
	})

	if _, ok := registry.Get("tenant-1", "2024-05-15"); !ok {
		t.Fatalf("expected the valid session to survive restore")
	}
	snapshot := registry.Snapshot()
	if len(snapshot.Sessions) != 1 {
		t.Fatalf("expected exactly one restored session, got %d", len(snapshot.Sessions))
	}
}
