package app

import (
	"sort"
	"sync"

	"daily-trivia-service/internal/domain"
)

// SessionRegistry records where each tenant's daily announcement was posted.
// The scheduler consults it to decide idempotently whether to post; it holds
// no business logic beyond lookup and mutation.
type SessionRegistry struct {
	mu sync.RWMutex
	// sessions: tenant -> day key -> session.
	sessions map[string]map[string]domain.GameSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]map[string]domain.GameSession)}
}

func (r *SessionRegistry) Get(tenant, day string) (domain.GameSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[tenant][day]
	return session, ok
}

func (r *SessionRegistry) Put(session domain.GameSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	days, ok := r.sessions[session.Tenant]
	if !ok {
		days = make(map[string]domain.GameSession)
		r.sessions[session.Tenant] = days
	}
	days[session.Day] = session
}

func (r *SessionRegistry) Remove(tenant, day string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	days, ok := r.sessions[tenant]
	if !ok {
		return
	}
	delete(days, day)
	if len(days) == 0 {
		delete(r.sessions, tenant)
	}
}

// Snapshot exports all sessions in a stable order.
func (r *SessionRegistry) Snapshot() domain.SessionsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := domain.SessionsSnapshot{Version: domain.SessionsSnapshotVersion}
	for _, days := range r.sessions {
		for _, session := range days {
			snapshot.Sessions = append(snapshot.Sessions, session)
		}
	}
	sort.Slice(snapshot.Sessions, func(i, j int) bool {
		if snapshot.Sessions[i].Tenant != snapshot.Sessions[j].Tenant {
			return snapshot.Sessions[i].Tenant < snapshot.Sessions[j].Tenant
		}
		return snapshot.Sessions[i].Day < snapshot.Sessions[j].Day
	})
	return snapshot
}

// Restore replaces the registry's contents with the snapshot. Entries
// missing a tenant or day key are skipped rather than failing the load.
func (r *SessionRegistry) Restore(snapshot domain.SessionsSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]map[string]domain.GameSession)
	for _, session := range snapshot.Sessions {
		if session.Tenant == "" || session.Day == "" {
			continue
		}
		days, ok := r.sessions[session.Tenant]
		if !ok {
			days = make(map[string]domain.GameSession)
			r.sessions[session.Tenant] = days
		}
		days[session.Day] = session
	}
}
